package auth

import (
	"context"
	"fmt"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/request"
)

// KeyLocation is where an API key is placed.
type KeyLocation string

const (
	KeyLocationHeader         KeyLocation = "header"
	KeyLocationQueryParameter KeyLocation = "query"
)

// APIKeyAuthenticationProvider adds a static API key to requests for allowed hosts.
type APIKeyAuthenticationProvider struct {
	key          string
	name         string
	location     KeyLocation
	allowedHosts *AllowedHostsValidator
}

// NewAPIKeyAuthenticationProvider creates an API key provider.
func NewAPIKeyAuthenticationProvider(key, name string, location KeyLocation, allowedHosts ...string) (*APIKeyAuthenticationProvider, error) {
	if key == "" {
		return nil, errors.MissingArgument("key")
	}
	if name == "" {
		return nil, errors.MissingArgument("name")
	}
	if location != KeyLocationHeader && location != KeyLocationQueryParameter {
		return nil, errors.Configuration(fmt.Sprintf("unknown api key location %q", location))
	}
	validator, err := NewAllowedHostsValidator(allowedHosts...)
	if err != nil {
		return nil, err
	}
	return &APIKeyAuthenticationProvider{key: key, name: name, location: location, allowedHosts: validator}, nil
}

// AuthenticateRequest implements AuthenticationProvider.
func (p *APIKeyAuthenticationProvider) AuthenticateRequest(_ context.Context, info *request.Information, _ map[string]any) error {
	uri, err := targetURI(info)
	if err != nil {
		return err
	}
	if !p.allowedHosts.IsURIHostValid(uri) {
		return nil
	}
	if err := requireHTTPS(uri); err != nil {
		return err
	}
	switch p.location {
	case KeyLocationQueryParameter:
		q := uri.Query()
		q.Set(p.name, p.key)
		uri.RawQuery = q.Encode()
		info.SetURI(*uri)
	case KeyLocationHeader:
		info.Headers.Add(p.name, p.key)
	}
	return nil
}

// GetAllowedHostsValidator returns the host validator.
func (p *APIKeyAuthenticationProvider) GetAllowedHostsValidator() *AllowedHostsValidator {
	return p.allowedHosts
}
