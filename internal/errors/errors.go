// Package errors defines the structured API error type returned by the HTTP
// layer and the mapping from ingestion failures to HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"nfcli/internal/ingest"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrMissingParameter = New(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")

	// 404 Not Found
	ErrNotFound      = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrNoCurrentData = New(http.StatusNotFound, "NO_CURRENT_DATA", "No dataset has been loaded yet")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors creates a validation error from multiple fields
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		map[string][]ValidationError{"errors": errs},
	)
}

// FromIngest maps an ingestion failure to its API representation. Unreadable
// sources map to 404, structurally broken input to 422, anything unrecognized
// to 500.
func FromIngest(err error) *APIError {
	var (
		unreadable *ingest.UnreadableFileError
		malformed  *ingest.MalformedInputError
		archive    *ingest.ArchiveStructureError
		missingKey *ingest.MissingJoinKeyError
	)

	switch {
	case stderrors.As(err, &unreadable):
		return NewWithDetails(http.StatusNotFound, "UNREADABLE_FILE",
			fmt.Sprintf("Cannot read %s", unreadable.Path), err.Error())
	case stderrors.As(err, &malformed):
		return NewWithDetails(http.StatusUnprocessableEntity, "MALFORMED_INPUT",
			fmt.Sprintf("Cannot parse %s as delimited text", malformed.Path), err.Error())
	case stderrors.As(err, &archive):
		return NewWithDetails(http.StatusUnprocessableEntity, "ARCHIVE_STRUCTURE",
			fmt.Sprintf("Archive %s does not contain the expected member pair", archive.Path), err.Error())
	case stderrors.As(err, &missingKey):
		return NewWithDetails(http.StatusUnprocessableEntity, "MISSING_JOIN_KEY",
			fmt.Sprintf("Join key %q is absent from %v", missingKey.Key, missingKey.MissingFrom), err.Error())
	default:
		return NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR",
			"Internal server error", err.Error())
	}
}

// ErrorResponse represents a standard error response envelope
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}
