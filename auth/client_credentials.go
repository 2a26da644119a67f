package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/gokiota/errors"
)

// ClientCredentialsTokenSource issues tokens with the OAuth2 client
// credentials grant.
type ClientCredentialsTokenSource struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token implements TokenSource.
func (s *ClientCredentialsTokenSource) Token(ctx context.Context, req TokenRequest) (*Token, error) {
	if s.TokenURL == "" {
		return nil, errors.MissingArgument("token_url")
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.ClientID)
	form.Set("client_secret", s.ClientSecret)
	if len(req.Scopes) > 0 {
		form.Set("scope", strings.Join(req.Scopes, " "))
	}
	if req.Claims != "" {
		form.Set("claims", req.Claims)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Configuration("invalid token url").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, errors.Transport(err)
	}
	defer resp.Body.Close() //nolint:errcheck // Error on close is safe to ignore for read operations

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Transport(fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))).
			WithDetail("status", resp.StatusCode)
	}

	var doc tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Deserialization("decode token response", err)
	}
	if doc.AccessToken == "" {
		return nil, errors.Deserialization("token response has no access_token", nil)
	}
	tok := &Token{AccessToken: doc.AccessToken}
	if doc.ExpiresIn > 0 {
		tok.ExpiresAt = start.Add(time.Duration(doc.ExpiresIn) * time.Second)
	}
	return tok, nil
}
