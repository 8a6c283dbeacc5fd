// Package common defines shared constants and sentinel errors used across
// client and server layers of GophID. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Encrypted field payload could not be decoded.
	ErrDecode = errors.New("malformed encrypted payload")
)

// ServiceError is an error with a message that is safe to show to the caller.
// Kind is one of the sentinels above and is what errors.Is matches against.
type ServiceError struct {
	Kind    error
	Message string
}

// NewServiceError returns a *ServiceError of the given kind.
func NewServiceError(kind error, msg string) *ServiceError {
	return &ServiceError{Kind: kind, Message: msg}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Kind
}

// PublicMessage returns the caller-facing message of the first ServiceError
// in err's chain, and false if there is none.
func PublicMessage(err error) (string, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message, true
	}
	return "", false
}
