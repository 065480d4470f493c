package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shaibs3/geoadmin/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps driver errors onto the store taxonomy. A missing row maps
// to ErrNotFound, a unique violation to ErrDuplicateKey and a foreign key
// violation (a reference to an absent row) to ErrNotFound.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s", store.ErrDuplicateKey, pqErr.Constraint)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s", store.ErrNotFound, pqErr.Constraint)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", store.ErrDuplicateKey, liteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", store.ErrNotFound, liteErr.Error())
		}
		// primary result code only
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := liteErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE constraint failed"):
				return fmt.Errorf("%w: %s", store.ErrDuplicateKey, msg)
			case strings.Contains(msg, "FOREIGN KEY constraint failed"):
				return fmt.Errorf("%w: %s", store.ErrNotFound, msg)
			}
		}
	}
	return err
}
