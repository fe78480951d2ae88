package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the ledger.
var (
	ErrParse       = errors.New("parse error")
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("resource not found")
	ErrConflict    = errors.New("resource conflict")
	ErrPersistence = errors.New("persistence failure")
)

// AppError represents a structured application error with context
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Context    map[string]interface{}
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewParseError reports unparsable numeric or date input.
func NewParseError(message string) *AppError {
	return NewAppError(ErrParse, message, http.StatusBadRequest)
}

// NewValidationError reports a business-rule violation.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrValidation, message, http.StatusUnprocessableEntity)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict)
}

// NewPersistenceError wraps a store failure. The cause stays reachable through errors.Is.
func NewPersistenceError(message string, cause error) *AppError {
	return NewAppError(fmt.Errorf("%w: %w", ErrPersistence, cause), message, http.StatusInternalServerError)
}

// StatusCode returns the HTTP status for err, 500 when err is not an AppError.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRejection reports whether err is a caller-side rejection rather than a failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
