// Package errors provides structured error types for psfind.
//
// Every failure produced while resolving a request carries a machine-readable
// [Code] so callers can tell "the server could not be queried" apart from
// "the query ran and nothing matched".
//
// # Error Codes
//
//   - TRANSPORT: network failure or non-2xx HTTP status
//   - PROTOCOL_UNSUPPORTED: the repository speaks a feed protocol without an endpoint mapping
//   - MALFORMED_RESPONSE: unparseable feed or an entry missing a required field
//   - VERSION_PARSE: a version or version range could not be parsed
//   - VALIDATION: a request shape that is never sent to the server
//   - RESOURCE_NOT_FOUND: well-formed query, zero satisfying results
//   - CANCELLED: the caller's context was cancelled
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "package name cannot be empty")
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeTransport, origErr, "GET %s", url)
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the resolution pipeline.
const (
	ErrCodeTransport           Code = "TRANSPORT"
	ErrCodeProtocolUnsupported Code = "PROTOCOL_UNSUPPORTED"
	ErrCodeMalformedResponse   Code = "MALFORMED_RESPONSE"
	ErrCodeVersionParse        Code = "VERSION_PARSE"
	ErrCodeValidation          Code = "VALIDATION"
	ErrCodeResourceNotFound    Code = "RESOURCE_NOT_FOUND"
	ErrCodeCancelled           Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	// StatusCode and Body are set for TRANSPORT errors caused by a non-2xx
	// response. Body is truncated by the HTTP client.
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Context cancellation and deadline errors report [ErrCodeCancelled] even when
// they were never wrapped. Returns empty string otherwise.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if IsContextError(err) {
		return ErrCodeCancelled
	}
	return ""
}

// IsNotFound reports whether err means "no results" rather than a failure.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeResourceNotFound)
}

// IsContextError reports whether err stems from context cancellation or a deadline.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// StatusCode returns the HTTP status attached to err, or 0 if there is none.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
