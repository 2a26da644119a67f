package auth

import (
	"context"
	"net/url"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/request"
)

// ClaimsKey is the additional context key carrying a base64 claims
// challenge returned by the service.
const ClaimsKey = "claims"

const authorizationHeader = "Authorization"

// AuthenticationProvider adds credentials to a request.
type AuthenticationProvider interface {
	AuthenticateRequest(ctx context.Context, info *request.Information, additionalContext map[string]any) error
}

// AuthenticationProviderFunc adapts a function to AuthenticationProvider.
type AuthenticationProviderFunc func(ctx context.Context, info *request.Information, additionalContext map[string]any) error

// AuthenticateRequest implements AuthenticationProvider.
func (f AuthenticationProviderFunc) AuthenticateRequest(ctx context.Context, info *request.Information, additionalContext map[string]any) error {
	return f(ctx, info, additionalContext)
}

// AccessTokenProvider returns a token for a request URL.
type AccessTokenProvider interface {
	// GetAuthorizationToken returns "" without error when the host is not allowed.
	GetAuthorizationToken(ctx context.Context, uri *url.URL, additionalContext map[string]any) (string, error)
	GetAllowedHostsValidator() *AllowedHostsValidator
}

// AnonymousAuthenticationProvider sends requests without credentials.
type AnonymousAuthenticationProvider struct{}

// AuthenticateRequest implements AuthenticationProvider.
func (AnonymousAuthenticationProvider) AuthenticateRequest(context.Context, *request.Information, map[string]any) error {
	return nil
}

// requireHTTPS fails when a credential would travel over plain http.
func requireHTTPS(uri *url.URL) error {
	if uri.Scheme != "https" {
		return errors.Configuration("credentials can only be sent over https").
			WithDetail("scheme", uri.Scheme)
	}
	return nil
}

// targetURI resolves the request URI, failing on a nil request.
func targetURI(info *request.Information) (*url.URL, error) {
	if info == nil {
		return nil, errors.MissingArgument("request")
	}
	return info.GetURI()
}
