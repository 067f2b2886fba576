// Package errs defines the error kinds shared across services. Handlers
// map them onto HTTP status codes; everything else wraps and rethrows.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller's role or assignment does
	// not permit the operation
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the entity is not in a state the
	// operation accepts, including lost conditional-update races
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned when the request itself is malformed
	ErrInvalidInput = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with a formatted message
func NotFound(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Forbidden wraps ErrForbidden with a formatted message
func Forbidden(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrForbidden)...)
}

// Conflict wraps ErrConflict with a formatted message
func Conflict(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// InvalidInput wraps ErrInvalidInput with a formatted message
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// IsNotFound reports whether err is an ErrNotFound
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden reports whether err is an ErrForbidden
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsConflict reports whether err is an ErrConflict
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsInvalidInput reports whether err is an ErrInvalidInput
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
