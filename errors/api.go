package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ResponseStatusCodeSetter is implemented by error models that record the status code.
type ResponseStatusCodeSetter interface {
	SetResponseStatusCode(code int)
}

// ResponseHeadersSetter is implemented by error models that record the response headers.
type ResponseHeadersSetter interface {
	SetResponseHeaders(headers http.Header)
}

// APIError is the generic failure returned when no typed error model is
// mapped for a response status. Typed error models usually embed it.
type APIError struct {
	Message            string
	ResponseStatusCode int
	ResponseHeaders    http.Header
}

// NewAPIError creates an APIError with the given message.
func NewAPIError(message string) *APIError {
	return &APIError{Message: message, ResponseHeaders: http.Header{}}
}

// Error returns the string representation of the error.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("error status code received from the API: %d", e.ResponseStatusCode)
}

// SetResponseStatusCode records the HTTP status code.
func (e *APIError) SetResponseStatusCode(code int) { e.ResponseStatusCode = code }

// GetResponseStatusCode returns the HTTP status code.
func (e *APIError) GetResponseStatusCode() int { return e.ResponseStatusCode }

// SetResponseHeaders records the response headers.
func (e *APIError) SetResponseHeaders(headers http.Header) { e.ResponseHeaders = headers }

// GetResponseHeaders returns the response headers.
func (e *APIError) GetResponseHeaders() http.Header { return e.ResponseHeaders }

// StatusCode extracts the response status code from an APIError in err's chain.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ResponseStatusCode, true
	}
	var withCode interface{ GetResponseStatusCode() int }
	if stderrors.As(err, &withCode) {
		return withCode.GetResponseStatusCode(), true
	}
	return 0, false
}
