package services

import (
	"errors"

	"librarian/internal/validation"
)

// Authentication failures. Their messages are returned to clients verbatim
// and never reveal whether an account exists.
var (
	ErrMissingCredentials   = errors.New("missing credentials")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUserNoLongerExists   = errors.New("user no longer exists")
)

// ErrInsufficientPermission is returned when the caller's role is not allowed.
var ErrInsufficientPermission = errors.New("insufficient permission")

// ErrBookNotFound is returned when the target book does not exist.
var ErrBookNotFound = errors.New("book not found")

// ValidationError lists every offending field of a request.
type ValidationError = validation.Error
