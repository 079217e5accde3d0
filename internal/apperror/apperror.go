// Package apperror defines the domain error taxonomy shared by the service,
// repository and handler layers.
//
// Every error the service layer returns is either an *AppError wrapping one of
// the sentinels below, or an unexpected failure that handlers report as 500.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Violation is a single field-level constraint failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err        error       // sentinel, matched with errors.Is
	Message    string      // human-readable error message
	Field      string      // optional: field causing the error
	Violations []Violation // set for validation errors spanning several fields
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Field:      field,
		Violations: []Violation{{Field: field, Message: message}},
	}
}

// Invalid bundles several violations into one error. The message joins the
// individual messages in order so clients that only read "message" still see
// every problem.
func Invalid(violations []Violation) *AppError {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	e := &AppError{
		Err:        ErrValidation,
		Message:    strings.Join(msgs, ", "),
		Violations: violations,
	}
	if len(violations) == 1 {
		e.Field = violations[0].Field
	}
	return e
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned for missing or bad credentials. HTTP handlers
// map it to 401.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
