package auth

import (
	"fmt"
	"net/http"

	"github.com/kbukum/gokiota/validation"
)

// Provider types accepted in Config.Type.
const (
	TypeAnonymous         = "anonymous"
	TypeBearer            = "bearer"
	TypeAPIKey            = "api_key"
	TypeBasic             = "basic"
	TypeClientCredentials = "client_credentials"
)

// Config selects and configures an AuthenticationProvider.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Type is one of anonymous, bearer, api_key, basic, client_credentials (default: anonymous).
	Type string `mapstructure:"type" yaml:"type"`

	// AllowedHosts limits which hosts receive credentials; empty allows all.
	AllowedHosts []string `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`

	// Token is the static bearer token for the bearer type.
	Token string `mapstructure:"token" yaml:"token"`

	APIKey            APIKeyConfig            `mapstructure:"api_key" yaml:"api_key"`
	Basic             BasicConfig             `mapstructure:"basic" yaml:"basic"`
	ClientCredentials ClientCredentialsConfig `mapstructure:"client_credentials" yaml:"client_credentials"`
}

// APIKeyConfig configures the api_key type.
type APIKeyConfig struct {
	Key      string `mapstructure:"key" yaml:"key"`
	Name     string `mapstructure:"name" yaml:"name"`
	Location string `mapstructure:"location" yaml:"location"`
}

// BasicConfig configures the basic type.
type BasicConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// ClientCredentialsConfig configures the client_credentials type.
type ClientCredentialsConfig struct {
	TokenURL     string   `mapstructure:"token_url" yaml:"token_url"`
	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeAnonymous
	}
	if c.Type == TypeAPIKey && c.APIKey.Location == "" {
		c.APIKey.Location = string(KeyLocationHeader)
	}
}

// Validate checks the fields required by the selected type.
func (c *Config) Validate() error {
	v := validation.New()
	v.OneOf("type", c.Type, TypeAnonymous, TypeBearer, TypeAPIKey, TypeBasic, TypeClientCredentials)
	for i, h := range c.AllowedHosts {
		v.NoScheme(fmt.Sprintf("allowed_hosts[%d]", i), h)
	}
	switch c.Type {
	case TypeBearer:
		v.Required("token", c.Token)
	case TypeAPIKey:
		v.Required("api_key.key", c.APIKey.Key).
			Required("api_key.name", c.APIKey.Name).
			OneOf("api_key.location", c.APIKey.Location, string(KeyLocationHeader), string(KeyLocationQueryParameter))
	case TypeBasic:
		v.Required("basic.username", c.Basic.Username)
	case TypeClientCredentials:
		v.AbsoluteURL("client_credentials.token_url", c.ClientCredentials.TokenURL).
			Required("client_credentials.client_id", c.ClientCredentials.ClientID)
	}
	return v.Validate()
}

// NewProvider builds the provider described by cfg. httpClient is used by
// the client_credentials type and may be nil.
func NewProvider(cfg Config, httpClient *http.Client) (AuthenticationProvider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case TypeBearer:
		return newBearer(StaticTokenSource(cfg.Token), cfg.AllowedHosts)
	case TypeAPIKey:
		return NewAPIKeyAuthenticationProvider(cfg.APIKey.Key, cfg.APIKey.Name, KeyLocation(cfg.APIKey.Location), cfg.AllowedHosts...)
	case TypeBasic:
		return NewBasicAuthenticationProvider(cfg.Basic.Username, cfg.Basic.Password, cfg.AllowedHosts...)
	case TypeClientCredentials:
		source := &ClientCredentialsTokenSource{
			TokenURL:     cfg.ClientCredentials.TokenURL,
			ClientID:     cfg.ClientCredentials.ClientID,
			ClientSecret: cfg.ClientCredentials.ClientSecret,
			HTTPClient:   httpClient,
		}
		return newBearer(source, cfg.AllowedHosts, cfg.ClientCredentials.Scopes...)
	default:
		return AnonymousAuthenticationProvider{}, nil
	}
}

func newBearer(source TokenSource, hosts []string, scopes ...string) (AuthenticationProvider, error) {
	tokens, err := NewCachingAccessTokenProvider(source, hosts, scopes...)
	if err != nil {
		return nil, err
	}
	return NewBaseBearerTokenAuthenticationProvider(tokens)
}
