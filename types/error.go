package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across npcagent.
type ErrorCode string

// Connection error codes
const (
	ErrNotConnected    ErrorCode = "NOT_CONNECTED"
	ErrSendQueueFull   ErrorCode = "SEND_QUEUE_FULL"
	ErrReducerRejected ErrorCode = "REDUCER_REJECTED"
	ErrProtocol        ErrorCode = "PROTOCOL"
)

// Planner error codes
const (
	ErrPlannerUnavailable ErrorCode = "PLANNER_UNAVAILABLE"
	ErrPlannerBadResponse ErrorCode = "PLANNER_BAD_RESPONSE"
	ErrCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
)

// Infrastructure error codes
const (
	ErrTokenStore    ErrorCode = "TOKEN_STORE"
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
// errors.Is(err, types.NewError(types.ErrNotConnected, "")) matches any NOT_CONNECTED error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error (or anything it wraps) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
