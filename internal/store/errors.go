package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key value")
)

// QueryError wraps a generic store failure with the operation that failed.
type QueryError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsDomain reports whether err is a condition callers act on (not found,
// duplicate key) rather than a store failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateKey)
}
