package shared

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status and a user-facing message alongside the
// underlying cause. The cause is logged server-side only, never serialized.
type AppError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(statusCode int, err error, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Err: err}
}

func NewBadRequestError(err error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, err, message)
}

func NewUnauthorizedError(err error, message string) *AppError {
	return NewAppError(http.StatusUnauthorized, err, message)
}

func NewNotFoundError(err error, message string) *AppError {
	return NewAppError(http.StatusNotFound, err, message)
}

func NewConflictError(err error, message string) *AppError {
	return NewAppError(http.StatusConflict, err, message)
}

func NewRateLimitError(err error, message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, err, message)
}

// NewConfigError reports a missing secret or endpoint. The message stays
// generic so configuration details never leak to clients.
func NewConfigError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, err, "Service is not configured correctly")
}

func NewUpstreamError(err error, message string) *AppError {
	return NewAppError(http.StatusInternalServerError, err, message)
}

func NewInternalError(err error, message string) *AppError {
	return NewAppError(http.StatusInternalServerError, err, message)
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
