// Package errorz holds the errors that cross package boundaries and maps
// database driver errors onto them.
package errorz

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConstraintViolated = errors.New("constraint violated")
	// ErrUnavailable means the database could not be used right now,
	// retrying later may succeed.
	ErrUnavailable = errors.New("database unavailable")
)

// sqliteErrs maps SQLite result codes to errorz errors.
var sqliteErrs = map[sqlite3.ErrNo]error{
	sqlite3.ErrConstraint: ErrConstraintViolated,
	sqlite3.ErrBusy:       ErrUnavailable,
	sqlite3.ErrLocked:     ErrUnavailable,
}

// MapDBErr wraps err in the matching errorz error. The original error
// stays in the chain. Nil maps to nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sErr sqlite3.Error
	if errors.As(err, &sErr) {
		if target, ok := sqliteErrs[sErr.Code]; ok {
			return fmt.Errorf("%w: %w", target, err)
		}
	}

	return err
}
