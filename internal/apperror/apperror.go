// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer maps them to status codes
// in handler/response.go. The sentinel categories cover every failure this
// application can report to a client:
//
//	ErrValidation   — a field failed a structural constraint (400)
//	ErrConflict     — a uniqueness constraint was violated (409)
//	ErrUnauthorized — credential verification failed (401)
//	ErrForbidden    — the caller lacks operator privileges (403)
//	ErrNotFound     — the requested record does not exist (404)
//
// Nothing in this taxonomy is fatal to the process; every error is
// per-request and reported back to the submitter.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AppError carries a category sentinel, a human-readable message, and
// optionally the name of the field that caused the error.
type AppError struct {
	Err     error  // category sentinel (ErrValidation, ErrConflict, ...)
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an AppError for a missing record.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed returns an AppError for a single field that violated a
// structural constraint (required-ness, max length, enum membership,
// syntax).
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict returns an AppError for a uniqueness violation on the given
// field (username or email).
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for failed credential verification.
// Callers must use the same message regardless of which part of the
// credentials was wrong, so the response does not leak whether the
// username exists.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
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

// NonFieldErrors is the key under which form-wide messages (those not
// attributable to a single field, e.g. mismatched passwords) are recorded
// in a FormError.
const NonFieldErrors = "__all__"

// FormError aggregates per-field errors from validating one submission.
//
// Validation accumulates every problem instead of stopping at the first,
// so the caller can render all of them together. Fields maps a field name
// to the list of messages for that field.
//
// FormError unwraps to ErrConflict when any member error is a uniqueness
// violation, otherwise to ErrValidation, so the HTTP layer reports the
// stronger status when the submission collided with an existing record.
type FormError struct {
	Fields   map[string][]string
	conflict bool
}

// NewFormError returns an empty FormError ready to accumulate into.
func NewFormError() *FormError {
	return &FormError{Fields: make(map[string][]string)}
}

// Add records a message against a field.
func (f *FormError) Add(field, message string) {
	f.Fields[field] = append(f.Fields[field], message)
}

// AddError records an *AppError against its own field. Errors without a
// field go under NonFieldErrors.
func (f *FormError) AddError(err *AppError) {
	field := err.Field
	if field == "" {
		field = NonFieldErrors
	}
	f.Add(field, err.Message)
	if errors.Is(err, ErrConflict) {
		f.conflict = true
	}
}

// HasErrors reports whether any message has been accumulated.
func (f *FormError) HasErrors() bool {
	return len(f.Fields) > 0
}

func (f *FormError) Error() string {
	names := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("invalid form submission: ")
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(f.Fields[name], ", "))
	}
	return b.String()
}

func (f *FormError) Unwrap() error {
	if f.conflict {
		return ErrConflict
	}
	return ErrValidation
}
