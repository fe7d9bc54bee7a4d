package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidRole  = errors.New("invalid role")
	ErrUnauthorized = errors.New("unauthorized")
)

// InputError is a validation failure whose message is safe to return to clients.
type InputError struct {
	Message string
}

// NewInputError creates an InputError with the given client-facing message.
func NewInputError(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string { return e.Message }

// Unwrap lets errors.Is(err, ErrInvalidInput) match every InputError.
func (e *InputError) Unwrap() error { return ErrInvalidInput }
