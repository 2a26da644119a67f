package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/serialization"
)

// ErrorMappings maps a status code ("404"), a class ("4XX", "5XX") or the
// catch-all "XXX" to the factory of the typed error model.
type ErrorMappings map[string]serialization.ParsableFactory

// Lookup returns the factory for status, trying the exact code, then its
// class, then the catch-all.
func (m ErrorMappings) Lookup(status int) (serialization.ParsableFactory, bool) {
	if len(m) == 0 {
		return nil, false
	}
	if f, ok := m[strconv.Itoa(status)]; ok && f != nil {
		return f, true
	}
	switch {
	case status >= 400 && status < 500:
		if f, ok := m["4XX"]; ok && f != nil {
			return f, true
		}
	case status >= 500 && status < 600:
		if f, ok := m["5XX"]; ok && f != nil {
			return f, true
		}
	}
	if f, ok := m["XXX"]; ok && f != nil {
		return f, true
	}
	return nil, false
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// failedResponseError turns a non-2xx response into the mapped typed error,
// or an *errors.APIError when nothing is mapped or the body is empty.
func (a *Adapter) failedResponseError(status int, header http.Header, contentType string, body []byte, mappings ErrorMappings) error {
	factory, ok := mappings.Lookup(status)
	if !ok {
		return newAPIError(fmt.Sprintf("the server returned an unexpected status code and no error factory is registered for this code: %d", status), status, header)
	}
	if len(body) == 0 {
		return newAPIError(fmt.Sprintf("the server returned an unexpected status code with no response body: %d", status), status, header)
	}

	node, err := a.parseNodeFactory.GetRootParseNode(contentType, body)
	if err != nil {
		return err
	}
	value, err := node.GetObjectValue(factory)
	if err != nil {
		return asDeserialization("failed to parse the error response", err)
	}
	if value == nil {
		return newAPIError(fmt.Sprintf("the server returned an unexpected status code and the error factory returned nothing: %d", status), status, header)
	}
	if s, ok := value.(errors.ResponseStatusCodeSetter); ok {
		s.SetResponseStatusCode(status)
	}
	if s, ok := value.(errors.ResponseHeadersSetter); ok {
		s.SetResponseHeaders(header.Clone())
	}
	typed, ok := value.(error)
	if !ok {
		return errors.Deserialization("the mapped error model does not implement error", nil).
			WithDetail("type", fmt.Sprintf("%T", value)).
			WithDetail("status", status)
	}
	return typed
}

func newAPIError(message string, status int, header http.Header) *errors.APIError {
	e := errors.NewAPIError(message)
	e.SetResponseStatusCode(status)
	e.SetResponseHeaders(header.Clone())
	return e
}

// asDeserialization keeps classified errors and wraps everything else.
func asDeserialization(message string, err error) error {
	if errors.IsError(err) {
		return err
	}
	return errors.Deserialization(message, err)
}

// transportError classifies a failure returned by the http.Client.
func transportError(ctx context.Context, err error) error {
	if e, ok := errors.AsError(err); ok {
		return e
	}
	if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Timeout(err)
	}
	return errors.Transport(err)
}
