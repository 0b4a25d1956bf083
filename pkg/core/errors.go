package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error type surfaced by vox-console components.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConnect covers failures while establishing a call: credential
	// issuance, room dialing, and audio capture acquisition.
	ErrConnect ErrorType = "connect_error"
	// ErrFetch covers history and transcript retrieval failures. Callers
	// typically recover these to an empty default.
	ErrFetch ErrorType = "fetch_error"
	// ErrSubmit covers feedback submission failures. Retryable by the user.
	ErrSubmit ErrorType = "submit_error"
	// ErrInvalidRequest covers caller mistakes (missing document id,
	// starting a call while one is active).
	ErrInvalidRequest ErrorType = "invalid_request_error"
)

// NewConnectError creates a connect error wrapping the underlying cause.
func NewConnectError(message string, cause error) *Error {
	return &Error{Type: ErrConnect, Message: message, Cause: cause}
}

// NewFetchError creates a fetch error wrapping the underlying cause.
func NewFetchError(message string, cause error) *Error {
	return &Error{Type: ErrFetch, Message: message, Cause: cause}
}

// NewSubmitError creates a submit error wrapping the underlying cause.
func NewSubmitError(message string, cause error) *Error {
	return &Error{Type: ErrSubmit, Message: message, Cause: cause}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// IsType reports whether err is a *core.Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
