package db

import (
	"errors"
	"fmt"
)

// Error kinds returned by Database operations. The API layer maps them to
// status codes with errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")       // 400
	ErrAlreadyExists = errors.New("already exists")      // 409
	ErrUnauthorized  = errors.New("invalid credentials") // 401
	ErrNotFound      = errors.New("not found")           // 404
	ErrInternal      = errors.New("internal error")      // 500
)

// Error is a failure of a known kind with a message meant for API clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
