// Package errors defines structured error types for the API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/maruel/tabledb/internal/catalog"
	"github.com/maruel/tabledb/internal/storage"
	"github.com/maruel/tabledb/internal/table"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"

	// ErrTableNotFound is returned when no table matches the requested name
	ErrTableNotFound ErrorCode = "TABLE_NOT_FOUND"
	// ErrDuplicateTable is returned when creating a table whose name is taken
	ErrDuplicateTable ErrorCode = "DUPLICATE_TABLE"
	// ErrTypeMismatch is returned when a value cannot be coerced to its field's type
	ErrTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrConditionParse is returned for a malformed condition or literal
	ErrConditionParse ErrorCode = "CONDITION_PARSE_ERROR"
	// ErrUnsupportedOperator is returned for a range operator on a text field
	ErrUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrLoad is returned when the database file cannot be loaded
	ErrLoad ErrorCode = "LOAD_ERROR"
	// ErrRateLimited is returned when a client sends too many requests
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil && e.wrappedErr.Error() != e.message {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName)).WithDetail("field", fieldName)
}

// RateLimited creates a 429 Too Many Requests error.
func RateLimited() *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "Too many requests")
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// kinds maps the store's error kinds to API codes, checked in order.
var kinds = []struct {
	err    error
	status int
	code   ErrorCode
}{
	{catalog.ErrTableNotFound, http.StatusNotFound, ErrTableNotFound},
	{catalog.ErrDuplicateTable, http.StatusConflict, ErrDuplicateTable},
	{table.ErrTypeMismatch, http.StatusUnprocessableEntity, ErrTypeMismatch},
	{table.ErrConditionParse, http.StatusBadRequest, ErrConditionParse},
	{table.ErrUnsupportedOperator, http.StatusBadRequest, ErrUnsupportedOperator},
	{storage.ErrLoad, http.StatusInternalServerError, ErrLoad},
}

// FromError converts err to an ErrorWithStatus.
//
// Errors that already carry a status are returned as is. Known store errors get
// their own code; anything else becomes INTERNAL_ERROR.
func FromError(err error) ErrorWithStatus {
	if err == nil {
		return nil
	}
	var ews ErrorWithStatus
	if stderrors.As(err, &ews) {
		return ews
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return NewAPIError(k.status, k.code, err.Error()).Wrap(err)
		}
	}
	return InternalWithError("Internal server error", err)
}
