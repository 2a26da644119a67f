package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error returned by the library.
type Error struct {
	// Code is a machine-readable error category.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with automatic retryable detection.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// --- Common Error Constructors ---

// Configuration creates an error for a misconfigured request or client.
func Configuration(message string) *Error {
	return New(ErrCodeConfiguration, message)
}

// MissingArgument creates an error for a nil or empty required argument.
func MissingArgument(name string) *Error {
	return &Error{
		Code:    ErrCodeMissingArgument,
		Message: fmt.Sprintf("%s cannot be nil or empty", name),
		Details: map[string]any{"argument": name},
	}
}

// UnsupportedContentType creates an error for a content type with no registered factory.
func UnsupportedContentType(contentType string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedContentType,
		Message: fmt.Sprintf("content type %s does not have a factory registered to be handled", contentType),
		Details: map[string]any{"content_type": contentType},
	}
}

// Transport creates an error for a failed round trip.
func Transport(cause error) *Error {
	return &Error{
		Code: ErrCodeTransport, Message: "the request could not be sent",
		Retryable: true, Cause: cause,
	}
}

// Timeout creates an error for a request whose context expired.
func Timeout(cause error) *Error {
	return &Error{
		Code: ErrCodeTimeout, Message: "the request was cancelled or timed out",
		Retryable: true, Cause: cause,
	}
}

// CircuitOpen creates an error for a request refused by an open circuit breaker.
func CircuitOpen(host string) *Error {
	return &Error{
		Code:    ErrCodeCircuitOpen,
		Message: fmt.Sprintf("the circuit for %s is open", host),
		Details: map[string]any{"host": host},
	}
}

// Deserialization creates an error for a body that could not be parsed.
func Deserialization(message string, cause error) *Error {
	return &Error{Code: ErrCodeDeserialization, Message: message, Cause: cause}
}

// Serialization creates an error for content that could not be written.
func Serialization(message string, cause error) *Error {
	return &Error{Code: ErrCodeSerialization, Message: message, Cause: cause}
}

// Authentication creates an error for credentials that could not be obtained.
func Authentication(message string, cause error) *Error {
	return &Error{Code: ErrCodeAuthentication, Message: message, Cause: cause}
}

// --- Helpers ---

// IsError checks if an error is an *Error.
func IsError(err error) bool {
	var e *Error
	return stderrors.As(err, &e)
}

// AsError converts an error to an *Error if possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err (or anything it wraps) is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}
