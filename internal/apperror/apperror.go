// Package apperror defines the error vocabulary shared by every layer.
//
// Services return *AppError values that wrap one of the sentinels below.
// Handlers never inspect messages; they use errors.Is on the sentinel to
// pick an HTTP status, so the mapping lives in exactly one place.
package apperror

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")
)

type AppError struct {
	Err      error               // sentinel
	Message  string              // Human-readable error message
	Field    string              // Optional: field causing the error
	Fields   map[string][]string // Optional: every failing field with its messages
	Resource string              // Optional: what wasn't found ("article", "user")
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FieldErrors returns the per-field messages of a validation error.
// A single-field error is expanded so callers can always render a map.
func (e *AppError) FieldErrors() map[string][]string {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	if e.Field != "" {
		return map[string][]string{e.Field: {e.Message}}
	}
	return nil
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:      ErrNotFound,
		Message:  fmt.Sprintf("%s not found with id %s", resource, id),
		Resource: resource,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationFields reports several failing fields at once. The message is
// the first field's first message, in field name order, so it stays stable.
func ValidationFields(fields map[string][]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msg := "validation failed"
	if len(names) > 0 && len(fields[names[0]]) > 0 {
		msg = fields[names[0]][0]
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Fields:  fields,
	}
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

// Unauthorized is returned for bad credentials and rejected tokens.
// The message is shown to clients, so keep it generic.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// StorageFailed wraps an asset store error. The cause is kept for logs
// through errors.Unwrap on the inner error but never rendered to clients.
func StorageFailed(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrStorage, cause),
		Message: fmt.Sprintf("storage: %s failed", op),
	}
}
