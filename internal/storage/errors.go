package storage

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when inserting a definition whose key
// already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The modernc.org/sqlite driver does not export a typed error
// for this, so the message text is the stable contract.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
