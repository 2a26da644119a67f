package middleware

import (
	"net/http"
	"net/url"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/request"
)

const (
	defaultMaxRedirects = 5
	maxRedirectsLimit   = 20
	locationHeader      = "Location"
	authorizationHeader = "Authorization"
)

// RedirectHandlerKey identifies RedirectHandlerOptions.
var RedirectHandlerKey = request.OptionKey{Key: "RedirectHandler"}

// ShouldRedirectFunc vetoes following a redirect response.
type ShouldRedirectFunc func(req *http.Request, resp *http.Response) bool

// RedirectHandlerOptions configures the redirect handler.
type RedirectHandlerOptions struct {
	// ShouldRedirect vetoes a hop. Nil always follows.
	ShouldRedirect ShouldRedirectFunc
	// MaxRedirects defaults to 5 and is capped at 20.
	MaxRedirects int
}

// GetKey implements request.Option.
func (o *RedirectHandlerOptions) GetKey() request.OptionKey {
	return RedirectHandlerKey
}

// GetMaxRedirects returns the effective hop limit.
func (o *RedirectHandlerOptions) GetMaxRedirects() int {
	switch {
	case o.MaxRedirects < 1:
		return defaultMaxRedirects
	case o.MaxRedirects > maxRedirectsLimit:
		return maxRedirectsLimit
	default:
		return o.MaxRedirects
	}
}

func (o *RedirectHandlerOptions) shouldRedirect(req *http.Request, resp *http.Response) bool {
	if o.ShouldRedirect == nil {
		return true
	}
	return o.ShouldRedirect(req, resp)
}

// RedirectHandler follows 301, 302, 303, 307 and 308 responses.
type RedirectHandler struct {
	options RedirectHandlerOptions
}

// NewRedirectHandler creates a redirect handler with default options.
func NewRedirectHandler() *RedirectHandler {
	return NewRedirectHandlerWithOptions(RedirectHandlerOptions{})
}

// NewRedirectHandlerWithOptions creates a redirect handler with the given defaults.
func NewRedirectHandlerWithOptions(options RedirectHandlerOptions) *RedirectHandler {
	return &RedirectHandler{options: options}
}

// Intercept implements Middleware.
func (h *RedirectHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	resp, err := pipeline.Next(req, index)
	if err != nil {
		return resp, err
	}
	options := &h.options
	if o, ok := OptionFrom[*RedirectHandlerOptions](req.Context(), RedirectHandlerKey); ok {
		options = o
	}
	maxRedirects := options.GetMaxRedirects()

	for hop := 1; hop <= maxRedirects; hop++ {
		if !isRedirect(resp) || !options.shouldRedirect(req, resp) {
			return resp, nil
		}
		next, err := redirectRequest(req, resp)
		if err != nil {
			drainAndClose(resp)
			return nil, err
		}

		componentLogger().Debug("following redirect", logger.Fields(
			logger.FieldStatus, resp.StatusCode,
			logger.FieldURL, next.URL.String(),
			logger.FieldAttempt, hop,
		))

		drainAndClose(resp)
		req = next
		resp, err = pipeline.Next(req, index)
		if err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func isRedirect(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return resp.Header.Get(locationHeader) != ""
	}
	return false
}

// redirectRequest builds the request for the Location of resp.
func redirectRequest(req *http.Request, resp *http.Response) (*http.Request, error) {
	ref, err := url.Parse(resp.Header.Get(locationHeader))
	if err != nil {
		return nil, errors.Transport(err).WithDetail("location", resp.Header.Get(locationHeader))
	}
	location := req.URL.ResolveReference(ref)

	next := req.Clone(req.Context())
	next.URL = location
	next.Host = ""
	next.RequestURI = ""

	if location.Host != req.URL.Host || location.Scheme != req.URL.Scheme {
		next.Header.Del(authorizationHeader)
	}

	if resp.StatusCode == http.StatusSeeOther {
		next.Method = http.MethodGet
		next.Body = nil
		next.GetBody = nil
		next.ContentLength = 0
		next.Header.Del(contentTypeHeader)
		next.Header.Del(contentLengthHeader)
		return next, nil
	}

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Transport(err)
		}
		next.Body = body
	}
	return next, nil
}
