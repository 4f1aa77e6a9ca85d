package search

import (
	"context"
	"errors"
	"fmt"
)

// ErrQueryRejected wird von einem Repository geliefert, wenn der Store die
// Grammatik einer Suchklausel ablehnt. Die Engine fängt diesen Fehler über die
// Degradationsleiter ab, er erreicht den Aufrufer nie.
var ErrQueryRejected = errors.New("query rejected by store grammar")

// ErrNotFound meldet einen unbekannten Artikel.
var ErrNotFound = errors.New("not found")

// ErrInvalidFilter markiert ungültige Filter-Eingaben (z.B. Datumsformat).
var ErrInvalidFilter = errors.New("invalid filter")

// Kind klassifiziert Fehler nach der Taxonomie der Suche.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error ist der einzige Fehlertyp, den die Suche nach außen gibt.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message liefert die kurze, benutzertaugliche Meldung ohne Backend-Details.
func (e *Error) Message() string {
	switch e.Kind {
	case KindInvalid:
		return "The filter could not be applied. Please check your input."
	case KindUnavailable:
		return "The article database is temporarily unavailable. Please try again."
	default:
		return "Failed to fetch articles. Please try again later."
	}
}

// Retryable meldet, ob ein erneuter Versuch sinnvoll ist.
func (e *Error) Retryable() bool { return e.Kind == KindUnavailable }

// Unavailable kapselt einen Transport- oder Verfügbarkeitsfehler des Stores.
func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

// Invalid kapselt einen Eingabefehler.
func Invalid(op string, err error) error {
	return &Error{Kind: KindInvalid, Op: op, Err: err}
}

// Internal kapselt alle übrigen Fehler.
func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// IsRetryable meldet, ob err (oder ein umschlossener Fehler) wiederholbar ist.
func IsRetryable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Retryable()
}

// UserMessage liefert die Meldung für die Oberfläche; rohe Backend-Texte
// werden nie direkt angezeigt.
func UserMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message()
	}
	return (&Error{Kind: KindInternal}).Message()
}

// wrap sorgt dafür, dass jeder Fehler aus der Engine ein *Error ist.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(op, err)
	}
	return Internal(op, err)
}
