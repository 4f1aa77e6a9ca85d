package search

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy begrenzt die Wiederholungen für transiente Fehler.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxDelay        time.Duration
}

// DefaultRetryPolicy: drei Versuche, höchstens zwei Sekunden Pause.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 200 * time.Millisecond,
	MaxDelay:        2 * time.Second,
}

// Retry führt fn mit exponentiellem Backoff aus. Nur Fehler, für die
// IsRetryable gilt, werden wiederholt; alle anderen kommen sofort zurück.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxDelay > 0 {
		eb.MaxInterval = p.MaxDelay
	}
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	return backoff.RetryWithData(func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b)
}
