// Package apperror defines the application's error taxonomy.
//
// Sentinel errors identify the KIND of failure; *AppError carries the
// human-readable message (and optionally the offending field) on top of a
// sentinel. Callers check the kind with errors.Is and read the message with
// errors.As:
//
//	var appErr *apperror.AppError
//	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrNotFound) { ... }
//
// The HTTP layer is the only place that turns these into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAuthFailure     = errors.New("authentication failed")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is used both for ids that do not exist and for ids owned by
// someone else, so the two cases read identically.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed rejects one input field. The message is shown to the user
// as is, so phrase it as an instruction:
//
//	apperror.ValidationFailed("title", "title is required")
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a write that clashes with an existing row, such as a
// GitHub id that is already linked to another account.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// DuplicateEmail reports a registration for an address that is already taken.
// HTTP handlers map this to 409 Conflict.
func DuplicateEmail() *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "an account with this email already exists",
		Field:   "email",
	}
}

// Unauthenticated means no live session was presented.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "valid authentication required",
	}
}

// AuthFailed never says whether the email exists.
func AuthFailed() *AppError {
	return &AppError{
		Err:     ErrAuthFailure,
		Message: "invalid email or password",
	}
}
