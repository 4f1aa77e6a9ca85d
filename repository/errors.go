package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"protein-atlas/search"
)

// grammarCodes sind die SQLSTATEs, die der Inhalt einer Textklausel auslösen
// kann. Fehlende Rechte, Tabellen oder Spalten (z.B. 42501, 42P01, 42703)
// gehören nicht dazu.
var grammarCodes = map[string]bool{
	"42601": true, // syntax_error
	"42883": true, // undefined_function
	"42804": true, // datatype_mismatch
	"42725": true, // ambiguous_function
	"42P18": true, // indeterminate_datatype
	"2201B": true, // invalid_regular_expression
	"22P02": true, // invalid_text_representation
	"22025": true, // invalid_escape_sequence
	"22019": true, // invalid_escape_character
	"2200C": true, // invalid_use_of_escape_character
	"22021": true, // character_not_in_repertoire
	"22P05": true, // untranslatable_character
}

// classify ordnet Datenbankfehler der Fehler-Taxonomie der Suche zu.
// Nur grammarCodes gelten als Grammatik-Ablehnung, Verbindungs- und
// Ressourcenfehler als nicht verfügbar, alles andere als intern.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, search.ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return search.Unavailable(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if grammarCodes[pgErr.Code] {
			return fmt.Errorf("%s: %w: %s (SQLSTATE %s)", op, search.ErrQueryRejected, pgErr.Message, pgErr.Code)
		}
		class := ""
		if len(pgErr.Code) >= 2 {
			class = pgErr.Code[:2]
		}
		switch class {
		case "08", "53", "57", "40":
			return search.Unavailable(op, err)
		default:
			return search.Internal(op, err)
		}
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return search.Unavailable(op, err)
	}
	return search.Internal(op, err)
}
