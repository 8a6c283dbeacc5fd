package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrForbidden   = errors.New("forbidden")
	ErrNotSignedIn = errors.New("not signed in")
	ErrBadResponse = errors.New("unexpected server response")
)

// APIError is a non-2xx answer carrying the server's message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// Is reports 403 answers as ErrForbidden.
func (e *APIError) Is(target error) bool {
	return target == ErrForbidden && e.Status == 403
}
