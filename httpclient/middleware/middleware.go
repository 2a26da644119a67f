package middleware

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/request"
)

// Pipeline hands a request to the middleware at index, or to the parent
// transport when every middleware has run.
type Pipeline interface {
	Next(req *http.Request, index int) (*http.Response, error)
}

// Middleware is one stage of the chain. Implementations call
// pipeline.Next(req, index) to continue.
type Middleware interface {
	Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(pipeline Pipeline, index int, req *http.Request) (*http.Response, error)

// Intercept calls f.
func (f MiddlewareFunc) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	return f(pipeline, index, req)
}

type pipeline struct {
	transport   http.RoundTripper
	middlewares []Middleware
}

func (p *pipeline) Next(req *http.Request, index int) (*http.Response, error) {
	if index < len(p.middlewares) {
		return p.middlewares[index].Intercept(p, index+1, req)
	}
	return p.transport.RoundTrip(req)
}

// CustomTransport is an http.RoundTripper running requests through a
// middleware chain before the parent transport.
type CustomTransport struct {
	pipeline *pipeline
}

// NewCustomTransport creates a transport. A nil parent uses a clone of
// http.DefaultTransport. Middlewares run in the order given.
func NewCustomTransport(parent http.RoundTripper, middlewares ...Middleware) *CustomTransport {
	if parent == nil {
		parent = http.DefaultTransport.(*http.Transport).Clone()
	}
	mws := make([]Middleware, 0, len(middlewares))
	for _, m := range middlewares {
		if m != nil {
			mws = append(mws, m)
		}
	}
	return &CustomTransport{pipeline: &pipeline{transport: parent, middlewares: mws}}
}

// RoundTrip implements http.RoundTripper.
func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.pipeline.Next(req, 0)
}

// Middlewares returns the configured chain.
func (t *CustomTransport) Middlewares() []Middleware {
	return append([]Middleware(nil), t.pipeline.middlewares...)
}

// Parent returns the transport the chain ends in.
func (t *CustomTransport) Parent() http.RoundTripper {
	return t.pipeline.transport
}

// GetDefaultMiddlewares returns the default chain, outermost first.
func GetDefaultMiddlewares() []Middleware {
	return []Middleware{
		NewUserAgentHandler(),
		NewParametersNameDecodingHandler(),
		NewTelemetryHandler(),
		NewHeadersInspectionHandler(),
		NewRedirectHandler(),
		NewRetryHandler(),
		NewCompressionHandler(),
	}
}

// GetDefaultClient creates an http.Client running the given middlewares, or
// the default chain when none are given. The client never follows
// redirects itself so the redirect handler stays in control.
func GetDefaultClient(middlewares ...Middleware) *http.Client {
	if len(middlewares) == 0 {
		middlewares = GetDefaultMiddlewares()
	}
	return &http.Client{
		Transport:     NewCustomTransport(nil, middlewares...),
		CheckRedirect: noRedirect,
		Timeout:       100 * time.Second,
	}
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

type optionContextKey request.OptionKey

// WithOptions returns a context carrying the given request options.
func WithOptions(ctx context.Context, options ...request.Option) context.Context {
	for _, o := range options {
		if o != nil {
			ctx = context.WithValue(ctx, optionContextKey(o.GetKey()), o)
		}
	}
	return ctx
}

// OptionFrom returns the option stored under key, if it has type T.
func OptionFrom[T request.Option](ctx context.Context, key request.OptionKey) (T, bool) {
	opt, ok := ctx.Value(optionContextKey(key)).(T)
	return opt, ok
}

// drainAndClose discards the rest of a response body so the connection can
// be reused.
func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func componentLogger() *logger.Logger {
	return logger.WithComponent("middleware")
}
