package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures surfaced to the orchestrator.
type ErrorCode string

const (
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeVCSFailed        ErrorCode = "VCS_FAILED"
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with additional context.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to the plugin response code.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with application context.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// StatusOf returns the plugin response code for err.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}

// InvalidRequest creates an invalid request error.
func InvalidRequest(message string) *AppError {
	return New(ErrCodeInvalidRequest, message)
}

// InvalidState creates an error for unreadable persisted scm-data.
func InvalidState(err error) *AppError {
	return Wrap(err, ErrCodeInvalidState, "persisted revision state is unreadable")
}

// VCSFailed creates an error for a failed version-control operation.
func VCSFailed(err error) *AppError {
	return Wrap(err, ErrCodeVCSFailed, "version control operation failed")
}

// ConnectionFailed creates a connection failed error.
func ConnectionFailed(err error) *AppError {
	return Wrap(err, ErrCodeConnectionFailed, "check connection failed")
}
