package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/roach88/ranked/internal/rank"
)

var (
	// ErrNotFound is returned when a record id does not exist in the list.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when inserting a record id that exists.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrListMismatch is returned when a list is opened with a definition
	// that differs from the one its table was created with.
	ErrListMismatch = errors.New("list definition does not match database")
)

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// classify turns driver lock failures into concurrency conflicts. Errors
// that already carry a rank code pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if rank.CodeOf(err) != "" {
		return err
	}
	if isBusy(err) {
		return rank.NewConflictError(err)
	}
	return err
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED from either
// driver. Extended result codes are reduced to their primary code.
func isBusy(err error) bool {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.Code == sqlite3.ErrBusy || mattnErr.Code == sqlite3.ErrLocked
	}

	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		code := modernErr.Code() & 0xff
		return code == sqlitelib.SQLITE_BUSY || code == sqlitelib.SQLITE_LOCKED
	}
	return false
}
