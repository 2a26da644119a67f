package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/request"
)

const (
	contentEncodingHeader = "Content-Encoding"
	contentLengthHeader   = "Content-Length"
	contentTypeHeader     = "Content-Type"
)

// CompressionHandlerKey identifies CompressionOptions.
var CompressionHandlerKey = request.OptionKey{Key: "CompressionHandler"}

// CompressionOptions switches request body compression.
type CompressionOptions struct {
	Enable bool
}

// GetKey implements request.Option.
func (o *CompressionOptions) GetKey() request.OptionKey {
	return CompressionHandlerKey
}

// CompressionHandler gzips request bodies. A 415 answer is resent once
// with the original body.
type CompressionHandler struct {
	options CompressionOptions
	level   int
}

// NewCompressionHandler creates an enabled handler.
func NewCompressionHandler() *CompressionHandler {
	return NewCompressionHandlerWithOptions(CompressionOptions{Enable: true})
}

// NewCompressionHandlerWithOptions creates a handler with the given defaults.
func NewCompressionHandlerWithOptions(options CompressionOptions) *CompressionHandler {
	return &CompressionHandler{options: options, level: gzip.DefaultCompression}
}

// Intercept implements Middleware.
func (h *CompressionHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	options := &h.options
	if o, ok := OptionFrom[*CompressionOptions](req.Context(), CompressionHandlerKey); ok {
		options = o
	}
	if !options.Enable || req.Body == nil || req.Body == http.NoBody || req.Header.Get(contentEncodingHeader) != "" {
		return pipeline.Next(req, index)
	}

	original, err := readBody(req)
	if err != nil {
		return nil, err
	}
	compressed, err := h.compress(original)
	if err != nil {
		return nil, err
	}

	zipped := withBody(req, compressed)
	zipped.Header.Set(contentEncodingHeader, "gzip")
	resp, err := pipeline.Next(zipped, index)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		return resp, nil
	}

	componentLogger().Debug("server rejected compressed body, resending uncompressed", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldHost, req.URL.Host,
	))
	drainAndClose(resp)
	return pipeline.Next(withBody(req, original), index)
}

func (h *CompressionHandler) compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, h.level)
	if err != nil {
		return nil, errors.Serialization("creating gzip writer", err)
	}
	if _, err := zw.Write(content); err != nil {
		return nil, errors.Serialization("compressing request body", err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Serialization("compressing request body", err)
	}
	return buf.Bytes(), nil
}

// readBody returns the full request body, preferring a fresh copy from
// GetBody so req stays resendable.
func readBody(req *http.Request) ([]byte, error) {
	body := req.Body
	if req.GetBody != nil {
		fresh, err := req.GetBody()
		if err != nil {
			return nil, errors.Transport(err)
		}
		_ = req.Body.Close()
		body = fresh
	}
	defer func() { _ = body.Close() }()
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Transport(err)
	}
	return content, nil
}

// withBody clones req with an in-memory body of content.
func withBody(req *http.Request, content []byte) *http.Request {
	next := req.Clone(req.Context())
	next.Body = io.NopCloser(bytes.NewReader(content))
	next.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	}
	next.ContentLength = int64(len(content))
	next.Header.Del(contentLengthHeader)
	return next
}
