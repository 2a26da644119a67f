package middleware

import (
	"net/http"

	"github.com/kbukum/gokiota/request"
)

// HeadersInspectionKey identifies HeadersInspectionOptions.
var HeadersInspectionKey = request.OptionKey{Key: "HeadersInspectionHandler"}

// HeadersInspectionOptions collects the headers of a request and its
// response for the caller. Use NewHeadersInspectionOptions so the header
// sets are allocated.
type HeadersInspectionOptions struct {
	InspectRequestHeaders  bool
	InspectResponseHeaders bool
	RequestHeaders         *request.Headers
	ResponseHeaders        *request.Headers
}

// NewHeadersInspectionOptions creates options with empty header sets.
func NewHeadersInspectionOptions(inspectRequest, inspectResponse bool) *HeadersInspectionOptions {
	return &HeadersInspectionOptions{
		InspectRequestHeaders:  inspectRequest,
		InspectResponseHeaders: inspectResponse,
		RequestHeaders:         request.NewHeaders(),
		ResponseHeaders:        request.NewHeaders(),
	}
}

// GetKey implements request.Option.
func (o *HeadersInspectionOptions) GetKey() request.OptionKey {
	return HeadersInspectionKey
}

// HeadersInspectionHandler copies headers into the request's
// HeadersInspectionOptions. Requests without the option pass through.
type HeadersInspectionHandler struct{}

// NewHeadersInspectionHandler creates the handler.
func NewHeadersInspectionHandler() *HeadersInspectionHandler {
	return &HeadersInspectionHandler{}
}

// Intercept implements Middleware.
func (h *HeadersInspectionHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	options, ok := OptionFrom[*HeadersInspectionOptions](req.Context(), HeadersInspectionKey)
	if !ok {
		return pipeline.Next(req, index)
	}
	if options.InspectRequestHeaders {
		if options.RequestHeaders == nil {
			options.RequestHeaders = request.NewHeaders()
		}
		copyHeaders(options.RequestHeaders, req.Header)
	}
	resp, err := pipeline.Next(req, index)
	if err != nil {
		return resp, err
	}
	if options.InspectResponseHeaders {
		if options.ResponseHeaders == nil {
			options.ResponseHeaders = request.NewHeaders()
		}
		copyHeaders(options.ResponseHeaders, resp.Header)
	}
	return resp, nil
}

func copyHeaders(dst *request.Headers, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
