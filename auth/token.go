package auth

import (
	"context"
	"encoding/base64"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/logger"
)

// expirySkew renews tokens this long before they expire.
const expirySkew = 30 * time.Second

// TokenRequest describes the token a TokenSource should issue.
type TokenRequest struct {
	Scopes []string
	// Claims is the decoded claims challenge, empty for ordinary requests.
	Claims string
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	// ExpiresAt is zero when the source did not report an expiry.
	ExpiresAt time.Time
}

// TokenSource issues access tokens.
type TokenSource interface {
	Token(ctx context.Context, req TokenRequest) (*Token, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context, req TokenRequest) (*Token, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context, req TokenRequest) (*Token, error) {
	return f(ctx, req)
}

// StaticTokenSource always returns the same token.
func StaticTokenSource(token string) TokenSource {
	return TokenSourceFunc(func(context.Context, TokenRequest) (*Token, error) {
		return &Token{AccessToken: token}, nil
	})
}

// CachingAccessTokenProvider is an AccessTokenProvider that reuses the last
// token until it is about to expire.
type CachingAccessTokenProvider struct {
	source       TokenSource
	allowedHosts *AllowedHostsValidator
	scopes       []string
	log          *logger.Logger

	// CacheTTL bounds the lifetime of tokens without a readable expiry.
	CacheTTL time.Duration

	mu      sync.Mutex
	cached  string
	expires time.Time
	now     func() time.Time
}

var _ AccessTokenProvider = (*CachingAccessTokenProvider)(nil)

// NewCachingAccessTokenProvider creates a provider for the given hosts and scopes.
func NewCachingAccessTokenProvider(source TokenSource, allowedHosts []string, scopes ...string) (*CachingAccessTokenProvider, error) {
	if source == nil {
		return nil, errors.MissingArgument("source")
	}
	validator, err := NewAllowedHostsValidator(allowedHosts...)
	if err != nil {
		return nil, err
	}
	return &CachingAccessTokenProvider{
		source:       source,
		allowedHosts: validator,
		scopes:       slices.Clone(scopes),
		log:          logger.WithComponent("auth"),
		CacheTTL:     5 * time.Minute,
		now:          time.Now,
	}, nil
}

// GetAllowedHostsValidator implements AccessTokenProvider.
func (p *CachingAccessTokenProvider) GetAllowedHostsValidator() *AllowedHostsValidator {
	return p.allowedHosts
}

// GetAuthorizationToken implements AccessTokenProvider.
func (p *CachingAccessTokenProvider) GetAuthorizationToken(ctx context.Context, uri *url.URL, additionalContext map[string]any) (string, error) {
	if uri == nil {
		return "", errors.MissingArgument("uri")
	}
	if !p.allowedHosts.IsURIHostValid(uri) {
		p.log.Debug("host not allowed, skipping token", map[string]interface{}{logger.FieldHost: uri.Hostname()})
		return "", nil
	}
	if err := requireHTTPS(uri); err != nil {
		return "", err
	}

	claims, err := decodeClaims(additionalContext)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if claims == "" && p.cached != "" && p.now().Before(p.expires) {
		return p.cached, nil
	}

	tok, err := p.source.Token(ctx, TokenRequest{Scopes: slices.Clone(p.scopes), Claims: claims})
	if err != nil {
		return "", errors.Authentication("failed to obtain an access token", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", errors.Authentication("the token source returned an empty token", nil)
	}
	p.cached = tok.AccessToken
	p.expires = p.expiry(tok)
	p.log.Debug("access token acquired", map[string]interface{}{"expires_at": p.expires.Format(time.RFC3339)})
	return p.cached, nil
}

// expiry reads the token's exp claim, falling back to the reported expiry
// and then to CacheTTL.
func (p *CachingAccessTokenProvider) expiry(tok *Token) time.Time {
	exp := tok.ExpiresAt
	claims := gojwt.MapClaims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(tok.AccessToken, claims); err == nil {
		if t, err := claims.GetExpirationTime(); err == nil && t != nil {
			exp = t.Time
		}
	}
	if exp.IsZero() {
		return p.now().Add(p.CacheTTL)
	}
	return exp.Add(-expirySkew)
}

// decodeClaims returns the decoded claims challenge, accepting standard and
// URL-safe base64 with or without padding.
func decodeClaims(additionalContext map[string]any) (string, error) {
	raw, ok := additionalContext[ClaimsKey]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Configuration("the claims entry must be a string")
	}
	if s == "" {
		return "", nil
	}
	trimmed := strings.TrimRight(s, "=")
	for _, enc := range []*base64.Encoding{base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(trimmed); err == nil {
			return string(b), nil
		}
	}
	return "", errors.Configuration("the claims entry is not valid base64")
}
