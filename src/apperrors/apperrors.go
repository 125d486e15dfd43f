package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies one of the error categories the API can report.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindNotFound      Kind = "NOT_FOUND_ERROR"
	KindDuplicate     Kind = "DUPLICATE_ERROR"
	KindDatabase      Kind = "DATABASE_ERROR"
	KindServer        Kind = "SERVER_ERROR"
	KindRouteNotFound Kind = "ROUTE_NOT_FOUND"
	KindCORS          Kind = "CORS_ERROR"
)

// AppError is the error type every layer above the store raises.
type AppError struct {
	Kind      Kind
	Message   string
	Status    int
	Details   map[string]interface{}
	Timestamp time.Time

	cause error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped infrastructure error, if any. It is kept
// server-side for logging and never serialized into a response.
func (e *AppError) Cause() error {
	return e.cause
}

func newAppError(kind Kind, status int, message string) *AppError {
	return &AppError{
		Kind:      kind,
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports constraint-violating input. violations maps a
// field name to every constraint that field violated, not just the first.
func NewValidationError(message string, violations map[string][]string) *AppError {
	err := newAppError(KindValidation, http.StatusBadRequest, message)
	if len(violations) > 0 {
		err.Details = map[string]interface{}{"violations": violations}
	}
	return err
}

// NewFieldValidationError is a convenience for a single offending field.
func NewFieldValidationError(field string, violations ...string) *AppError {
	return NewValidationError(
		fmt.Sprintf("field '%s' is invalid", field),
		map[string][]string{field: violations},
	)
}

func NewNotFoundError(id string) *AppError {
	err := newAppError(KindNotFound, http.StatusNotFound, fmt.Sprintf("document with id '%s' was not found", id))
	err.Details = map[string]interface{}{"id": id}
	return err
}

func NewDuplicateError(field string) *AppError {
	err := newAppError(KindDuplicate, http.StatusConflict, fmt.Sprintf("a document with the same value for '%s' already exists", field))
	err.Details = map[string]interface{}{"field": field}
	return err
}

// NewDatabaseError wraps a store or transport failure. The cause stays
// attached for logging but the message exposed to callers is generic.
func NewDatabaseError(cause error) *AppError {
	err := newAppError(KindDatabase, http.StatusInternalServerError, "a database error occurred")
	err.cause = cause
	return err
}

func NewServerError(cause error) *AppError {
	err := newAppError(KindServer, http.StatusInternalServerError, "an unexpected error occurred")
	err.cause = cause
	return err
}

func NewRouteNotFoundError(method, path string) *AppError {
	err := newAppError(KindRouteNotFound, http.StatusNotFound, fmt.Sprintf("no route for %s %s", method, path))
	err.Details = map[string]interface{}{"method": method, "path": path}
	return err
}

func NewCORSError(origin string) *AppError {
	err := newAppError(KindCORS, http.StatusForbidden, fmt.Sprintf("origin '%s' is not allowed", origin))
	err.Details = map[string]interface{}{"origin": origin}
	return err
}

// From normalizes any error into an AppError. Already-typed errors pass
// through untouched so no error is re-wrapped twice.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewServerError(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
