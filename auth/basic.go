package auth

import (
	"context"
	"encoding/base64"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/request"
)

// BasicAuthenticationProvider adds HTTP basic credentials to requests for allowed hosts.
type BasicAuthenticationProvider struct {
	header       string
	allowedHosts *AllowedHostsValidator
}

// NewBasicAuthenticationProvider creates a basic provider.
func NewBasicAuthenticationProvider(username, password string, allowedHosts ...string) (*BasicAuthenticationProvider, error) {
	if username == "" {
		return nil, errors.MissingArgument("username")
	}
	validator, err := NewAllowedHostsValidator(allowedHosts...)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &BasicAuthenticationProvider{header: "Basic " + encoded, allowedHosts: validator}, nil
}

// AuthenticateRequest implements AuthenticationProvider. An existing
// Authorization header is kept.
func (p *BasicAuthenticationProvider) AuthenticateRequest(_ context.Context, info *request.Information, _ map[string]any) error {
	uri, err := targetURI(info)
	if err != nil {
		return err
	}
	if !p.allowedHosts.IsURIHostValid(uri) || info.Headers.ContainsKey(authorizationHeader) {
		return nil
	}
	if err := requireHTTPS(uri); err != nil {
		return err
	}
	info.Headers.Add(authorizationHeader, p.header)
	return nil
}

// GetAllowedHostsValidator returns the host validator.
func (p *BasicAuthenticationProvider) GetAllowedHostsValidator() *AllowedHostsValidator {
	return p.allowedHosts
}
