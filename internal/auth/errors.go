package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrPasswordMismatch is returned when the password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrEmailTaken is returned when an account already uses the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for an unknown email and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAdminEmailInUse is returned by EnsureAdmin when a non-admin
	// account already holds the admin email.
	ErrAdminEmailInUse = errors.New("admin email belongs to a non-admin account")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
