package middleware

import (
	"net/http"
	"strings"

	"github.com/kbukum/gokiota/request"
	"github.com/kbukum/gokiota/version"
)

const userAgentHeader = "User-Agent"

// UserAgentHandlerKey identifies UserAgentHandlerOptions.
var UserAgentHandlerKey = request.OptionKey{Key: "UserAgentHandler"}

// UserAgentHandlerOptions names the product token appended to User-Agent.
type UserAgentHandlerOptions struct {
	Enable         bool
	ProductName    string
	ProductVersion string
}

// GetKey implements request.Option.
func (o *UserAgentHandlerOptions) GetKey() request.OptionKey {
	return UserAgentHandlerKey
}

// NewUserAgentHandlerOptions returns options naming this library.
func NewUserAgentHandlerOptions() UserAgentHandlerOptions {
	return UserAgentHandlerOptions{
		Enable:         true,
		ProductName:    version.ProductName,
		ProductVersion: version.ProductVersion(),
	}
}

func (o *UserAgentHandlerOptions) token() string {
	if o.ProductVersion == "" {
		return o.ProductName
	}
	return o.ProductName + "/" + o.ProductVersion
}

// UserAgentHandler appends a product token to the User-Agent header.
type UserAgentHandler struct {
	options UserAgentHandlerOptions
}

// NewUserAgentHandler creates a handler with default options.
func NewUserAgentHandler() *UserAgentHandler {
	return NewUserAgentHandlerWithOptions(NewUserAgentHandlerOptions())
}

// NewUserAgentHandlerWithOptions creates a handler with the given defaults.
func NewUserAgentHandlerWithOptions(options UserAgentHandlerOptions) *UserAgentHandler {
	return &UserAgentHandler{options: options}
}

// Intercept implements Middleware.
func (h *UserAgentHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	options := &h.options
	if o, ok := OptionFrom[*UserAgentHandlerOptions](req.Context(), UserAgentHandlerKey); ok {
		options = o
	}
	if options.Enable && options.ProductName != "" {
		token := options.token()
		current := req.Header.Get(userAgentHeader)
		if !strings.Contains(current, token) {
			req = req.Clone(req.Context())
			if current == "" {
				req.Header.Set(userAgentHeader, token)
			} else {
				req.Header.Set(userAgentHeader, current+" "+token)
			}
		}
	}
	return pipeline.Next(req, index)
}
