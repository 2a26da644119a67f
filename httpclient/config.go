package httpclient

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/httpclient/middleware"
	"github.com/kbukum/gokiota/observability"
	"github.com/kbukum/gokiota/validation"
	"github.com/kbukum/gokiota/version"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 3
	defaultDelaySeconds = 3
	defaultMaxRedirects = 5
)

// Config configures the request adapter and its default middleware chain.
type Config struct {
	// Name identifies the client in logs.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL replaces the {+baseurl} placeholder of every URL template.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds one call including retries and redirects. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are added to every request that does not set them itself.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// TLS configures the transport. Nil keeps the system defaults.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	Retry                  RetryConfig                  `yaml:"retry" mapstructure:"retry"`
	Redirect               RedirectConfig               `yaml:"redirect" mapstructure:"redirect"`
	Compression            CompressionConfig            `yaml:"compression" mapstructure:"compression"`
	UserAgent              UserAgentConfig              `yaml:"user_agent" mapstructure:"user_agent"`
	ParametersNameDecoding ParametersNameDecodingConfig `yaml:"parameters_name_decoding" mapstructure:"parameters_name_decoding"`
	CircuitBreaker         CircuitBreakerConfig         `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimit              RateLimitConfig              `yaml:"rate_limit" mapstructure:"rate_limit"`
	Tracing                TracingConfig                `yaml:"tracing" mapstructure:"tracing"`
	Chaos                  ChaosConfig                  `yaml:"chaos" mapstructure:"chaos"`
}

// RetryConfig configures the retry middleware.
type RetryConfig struct {
	Disabled     bool `yaml:"disabled" mapstructure:"disabled"`
	MaxRetries   int  `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	DelaySeconds int  `yaml:"delay_seconds" mapstructure:"delay_seconds" validate:"gte=0,lte=180"`
}

// RedirectConfig configures the redirect middleware.
type RedirectConfig struct {
	Disabled     bool `yaml:"disabled" mapstructure:"disabled"`
	MaxRedirects int  `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0,lte=20"`
}

// CompressionConfig configures request body compression.
type CompressionConfig struct {
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
}

// UserAgentConfig configures the User-Agent product token.
type UserAgentConfig struct {
	Disabled       bool   `yaml:"disabled" mapstructure:"disabled"`
	ProductName    string `yaml:"product_name" mapstructure:"product_name"`
	ProductVersion string `yaml:"product_version" mapstructure:"product_version"`
}

// ParametersNameDecodingConfig configures query parameter name decoding.
type ParametersNameDecodingConfig struct {
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
}

// CircuitBreakerConfig configures per-host fail-fast. Zero values use the
// middleware defaults.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxFailures int           `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	OpenTimeout time.Duration `yaml:"open_timeout" mapstructure:"open_timeout" validate:"gte=0"`
}

// RateLimitConfig limits the request rate per host. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// TracingConfig enables a span and metrics per attempt.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ChaosConfig injects synthetic failures. Zero disables it.
type ChaosConfig struct {
	Percentage  int   `yaml:"percentage" mapstructure:"percentage" validate:"gte=0,lte=100"`
	StatusCodes []int `yaml:"status_codes" mapstructure:"status_codes" validate:"dive,gte=400,lte=599"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = version.ProductName
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = defaultMaxRetries
	}
	if c.Retry.DelaySeconds == 0 {
		c.Retry.DelaySeconds = defaultDelaySeconds
	}
	if c.Redirect.MaxRedirects == 0 {
		c.Redirect.MaxRedirects = defaultMaxRedirects
	}
	if c.UserAgent.ProductName == "" {
		c.UserAgent.ProductName = version.ProductName
	}
	if c.UserAgent.ProductVersion == "" {
		c.UserAgent.ProductVersion = version.ProductVersion()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	if c.UserAgent.ProductName != "" && strings.ContainsAny(c.UserAgent.ProductName, " /") {
		return errors.Configuration("user_agent.product_name must be a single token").
			WithDetail("product_name", c.UserAgent.ProductName)
	}
	return nil
}

// Middlewares builds the chain described by the configuration, outermost
// first. provider and metrics are only used when tracing is enabled.
func (c *Config) Middlewares(provider trace.TracerProvider, metrics *observability.RequestMetrics) []middleware.Middleware {
	var mws []middleware.Middleware
	if !c.UserAgent.Disabled {
		mws = append(mws, middleware.NewUserAgentHandlerWithOptions(middleware.UserAgentHandlerOptions{
			Enable:         true,
			ProductName:    c.UserAgent.ProductName,
			ProductVersion: c.UserAgent.ProductVersion,
		}))
	}
	if !c.ParametersNameDecoding.Disabled {
		mws = append(mws, middleware.NewParametersNameDecodingHandler())
	}
	mws = append(mws, middleware.NewTelemetryHandler(), middleware.NewHeadersInspectionHandler())
	if !c.Redirect.Disabled {
		mws = append(mws, middleware.NewRedirectHandlerWithOptions(middleware.RedirectHandlerOptions{
			MaxRedirects: c.Redirect.MaxRedirects,
		}))
	}
	if !c.Retry.Disabled {
		mws = append(mws, middleware.NewRetryHandlerWithOptions(middleware.RetryHandlerOptions{
			MaxRetries:   c.Retry.MaxRetries,
			DelaySeconds: c.Retry.DelaySeconds,
		}))
	}
	if c.CircuitBreaker.Enabled {
		mws = append(mws, middleware.NewCircuitBreakerHandlerWithOptions(middleware.CircuitBreakerOptions{
			MaxFailures: c.CircuitBreaker.MaxFailures,
			OpenTimeout: c.CircuitBreaker.OpenTimeout,
		}))
	}
	if c.RateLimit.RequestsPerSecond > 0 {
		mws = append(mws, middleware.NewRateLimitHandler(middleware.RateLimitOptions{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			Burst:             c.RateLimit.Burst,
		}))
	}
	if !c.Compression.Disabled {
		mws = append(mws, middleware.NewCompressionHandler())
	}
	if c.Tracing.Enabled {
		mws = append(mws, middleware.NewTracingHandler(provider, metrics))
	}
	if c.Chaos.Percentage > 0 {
		mws = append(mws, middleware.NewChaosHandlerWithOptions(middleware.ChaosHandlerOptions{
			ChaosPercentage: c.Chaos.Percentage,
			StatusCodes:     c.Chaos.StatusCodes,
		}))
	}
	return mws
}
