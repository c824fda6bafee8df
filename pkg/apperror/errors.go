package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Message: "Resource already exists"}
	ErrUnprocessable  = &AppError{Code: http.StatusUnprocessableEntity, Message: "Unprocessable entity"}
)

// Idempotency errors. Sentinel values so callers can branch with errors.Is;
// each carries the HTTP code the client should see.
var (
	// ErrIdempotencyConflict signals a lost race creating or advancing an
	// idempotency key. The client retries with the same key.
	ErrIdempotencyConflict = &AppError{Code: http.StatusConflict, Message: "Idempotency key is already being created, retry the request"}

	// ErrMismatchedRequest signals an idempotency key reused against a
	// different method, path or path params. Not retryable.
	ErrMismatchedRequest = &AppError{Code: http.StatusConflict, Message: "Idempotency key was used for a different request"}

	// ErrIdempotencyLocked signals another caller currently executing a
	// stage under the same key. The client backs off and retries.
	ErrIdempotencyLocked = &AppError{Code: http.StatusConflict, Message: "Request with this idempotency key is already in progress"}

	// ErrUnknownRecoveryPoint signals a persisted recovery point this build
	// does not recognize. The key is force-finished with a 500 payload so
	// retries do not loop.
	ErrUnknownRecoveryPoint = &AppError{Code: http.StatusInternalServerError, Message: "Unknown recovery point for idempotency key"}

	// ErrInvalidState signals a data-integrity violation, e.g. a prior
	// stage's committed write that should exist but does not.
	ErrInvalidState = &AppError{Code: http.StatusInternalServerError, Message: "Entity is in an invalid state"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// NewInvalidStateError creates an invalid-state error with a custom message
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}
