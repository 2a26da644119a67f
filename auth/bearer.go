package auth

import (
	"context"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/request"
)

// BaseBearerTokenAuthenticationProvider sets "Authorization: Bearer <token>"
// with a token from an AccessTokenProvider.
type BaseBearerTokenAuthenticationProvider struct {
	tokens AccessTokenProvider
}

// NewBaseBearerTokenAuthenticationProvider creates a bearer provider.
func NewBaseBearerTokenAuthenticationProvider(tokens AccessTokenProvider) (*BaseBearerTokenAuthenticationProvider, error) {
	if tokens == nil {
		return nil, errors.MissingArgument("tokens")
	}
	return &BaseBearerTokenAuthenticationProvider{tokens: tokens}, nil
}

// AuthenticateRequest implements AuthenticationProvider. A claims entry in
// additionalContext replaces any existing Authorization header; otherwise an
// existing header is kept.
func (p *BaseBearerTokenAuthenticationProvider) AuthenticateRequest(ctx context.Context, info *request.Information, additionalContext map[string]any) error {
	if info == nil {
		return errors.MissingArgument("request")
	}
	if _, ok := additionalContext[ClaimsKey]; ok {
		info.Headers.Remove(authorizationHeader)
	}
	if info.Headers.ContainsKey(authorizationHeader) {
		return nil
	}
	uri, err := info.GetURI()
	if err != nil {
		return err
	}
	token, err := p.tokens.GetAuthorizationToken(ctx, uri, additionalContext)
	if err != nil {
		return err
	}
	if token != "" {
		info.Headers.Add(authorizationHeader, "Bearer "+token)
	}
	return nil
}

// GetAuthorizationTokenProvider returns the underlying token provider.
func (p *BaseBearerTokenAuthenticationProvider) GetAuthorizationTokenProvider() AccessTokenProvider {
	return p.tokens
}
