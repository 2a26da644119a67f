package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gokiota/auth"
	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/httpclient/middleware"
	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/observability"
	"github.com/kbukum/gokiota/request"
	"github.com/kbukum/gokiota/serialization"
	"github.com/kbukum/gokiota/store"
)

// BaseURLParameter is the path parameter the adapter fills with its base URL.
const BaseURLParameter = "baseurl"

// Adapter executes request.Information descriptions over HTTP and maps the
// responses onto models with the configured parse node factory.
// It is safe for concurrent use.
type Adapter struct {
	httpClient                 *http.Client
	config                     Config
	provider                   auth.AuthenticationProvider
	parseNodeFactory           serialization.ParseNodeFactory
	serializationWriterFactory serialization.SerializationWriterFactory
	log                        *logger.Logger
	tracer                     trace.Tracer

	mu      sync.RWMutex
	baseURL string
}

// Option customizes an Adapter.
type Option func(*options)

type options struct {
	httpClient                 *http.Client
	parseNodeFactory           serialization.ParseNodeFactory
	serializationWriterFactory serialization.SerializationWriterFactory
	middlewares                []middleware.Middleware
	log                        *logger.Logger
	tracerProvider             trace.TracerProvider
	meterProvider              metric.MeterProvider
}

// WithHTTPClient sends requests with client as is. The configured
// middleware chain, TLS and timeout are not applied to it.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithParseNodeFactory replaces the default parse node registry.
func WithParseNodeFactory(factory serialization.ParseNodeFactory) Option {
	return func(o *options) { o.parseNodeFactory = factory }
}

// WithSerializationWriterFactory replaces the default writer registry.
func WithSerializationWriterFactory(factory serialization.SerializationWriterFactory) Option {
	return func(o *options) { o.serializationWriterFactory = factory }
}

// WithMiddleware replaces the chain built from Config.
func WithMiddleware(middlewares ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = middlewares }
}

// WithLogger sets the logger. Defaults to the global logger with the
// "httpclient" component.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTracerProvider sets the provider for adapter spans and, when tracing
// is enabled, the tracing middleware. Defaults to the global provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = provider }
}

// WithMeterProvider sets the provider for request metrics recorded by the
// tracing middleware. Defaults to the global provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = provider }
}

// New creates an adapter. provider authenticates every request; use
// auth.AnonymousAuthenticationProvider for public APIs.
func New(cfg Config, provider auth.AuthenticationProvider, opts ...Option) (*Adapter, error) {
	if provider == nil {
		return nil, errors.MissingArgument("provider")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.parseNodeFactory == nil {
		o.parseNodeFactory = serialization.DefaultParseNodeFactoryRegistry
	}
	if o.serializationWriterFactory == nil {
		o.serializationWriterFactory = serialization.DefaultSerializationWriterFactoryRegistry
	}
	if o.log == nil {
		o.log = logger.WithComponent("httpclient")
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	client := o.httpClient
	if client == nil {
		var err error
		if client, err = newHTTPClient(&cfg, o); err != nil {
			return nil, err
		}
	}

	return &Adapter{
		httpClient:                 client,
		config:                     cfg,
		provider:                   provider,
		parseNodeFactory:           o.parseNodeFactory,
		serializationWriterFactory: o.serializationWriterFactory,
		log:                        o.log.WithFields(logger.Fields(logger.FieldClient, cfg.Name)),
		tracer:                     o.tracerProvider.Tracer(observability.TracerName),
		baseURL:                    cfg.BaseURL,
	}, nil
}

func newHTTPClient(cfg *Config, o *options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	mws := o.middlewares
	if mws == nil {
		var metrics *observability.RequestMetrics
		if cfg.Tracing.Enabled {
			mp := o.meterProvider
			if mp == nil {
				mp = otel.GetMeterProvider()
			}
			if metrics, err = observability.NewRequestMetrics(mp.Meter(observability.TracerName)); err != nil {
				return nil, err
			}
		}
		mws = cfg.Middlewares(o.tracerProvider, metrics)
	}

	return &http.Client{
		Transport: middleware.NewCustomTransport(transport, mws...),
		Timeout:   cfg.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// GetSerializationWriterFactory returns the factory used for request bodies.
func (a *Adapter) GetSerializationWriterFactory() serialization.SerializationWriterFactory {
	return a.serializationWriterFactory
}

// GetParseNodeFactory returns the factory used for response bodies.
func (a *Adapter) GetParseNodeFactory() serialization.ParseNodeFactory {
	return a.parseNodeFactory
}

// BaseURL returns the base URL substituted into URL templates.
func (a *Adapter) BaseURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.baseURL
}

// SetBaseURL changes the base URL. A trailing slash is dropped.
func (a *Adapter) SetBaseURL(baseURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.baseURL = strings.TrimSuffix(baseURL, "/")
}

// Unwrap returns the underlying *http.Client.
func (a *Adapter) Unwrap() *http.Client {
	return a.httpClient
}

// EnableBackingStore wraps the adapter's factories and the default
// registries so parsed models start with a clean store and written models
// only emit changed values. A non-nil factory replaces
// store.DefaultBackingStoreFactory. Call it during startup; registries are
// wrapped in place.
func (a *Adapter) EnableBackingStore(factory store.BackingStoreFactory) error {
	if factory != nil {
		store.DefaultBackingStoreFactory = factory
	}

	switch f := a.parseNodeFactory.(type) {
	case *serialization.ParseNodeFactoryRegistry:
		if err := store.EnableBackingStoreForParseNodeRegistry(f); err != nil {
			return err
		}
	case *store.BackingStoreParseNodeFactory:
	default:
		wrapped, err := store.NewBackingStoreParseNodeFactory(f)
		if err != nil {
			return err
		}
		a.parseNodeFactory = wrapped
	}

	switch f := a.serializationWriterFactory.(type) {
	case *serialization.SerializationWriterFactoryRegistry:
		if err := store.EnableBackingStoreForSerializationWriterRegistry(f); err != nil {
			return err
		}
	case *store.BackingStoreSerializationWriterProxyFactory:
	default:
		wrapped, err := store.NewBackingStoreSerializationWriterProxyFactory(f)
		if err != nil {
			return err
		}
		a.serializationWriterFactory = wrapped
	}

	// Already-wrapped entries are skipped, so this is a no-op when the
	// adapter uses the defaults.
	if err := store.EnableBackingStoreForParseNodeRegistry(serialization.DefaultParseNodeFactoryRegistry); err != nil {
		return err
	}
	return store.EnableBackingStoreForSerializationWriterRegistry(serialization.DefaultSerializationWriterFactoryRegistry)
}

// ConvertToNativeRequest resolves, authenticates and builds the
// *http.Request for info without sending it.
func (a *Adapter) ConvertToNativeRequest(ctx context.Context, info *request.Information) (*http.Request, error) {
	if info == nil {
		return nil, errors.MissingArgument("info")
	}
	a.setBaseURLForRequest(info)
	if err := a.authenticate(ctx, info, ""); err != nil {
		return nil, err
	}
	return a.buildRequest(ctx, info)
}

func (a *Adapter) setBaseURLForRequest(info *request.Information) {
	if info.PathParameters == nil {
		info.PathParameters = make(map[string]string)
	}
	info.PathParameters[BaseURLParameter] = a.BaseURL()
}

func (a *Adapter) authenticate(ctx context.Context, info *request.Information, claims string) error {
	ctx, span := a.tracer.Start(ctx, observability.SpanAuthenticate)
	defer span.End()

	additional := map[string]any{}
	if claims != "" {
		additional[auth.ClaimsKey] = claims
	}
	if err := a.provider.AuthenticateRequest(ctx, info, additional); err != nil {
		observability.SetSpanError(span, err)
		if errors.IsError(err) {
			return err
		}
		return errors.Authentication("failed to authenticate the request", err)
	}
	return nil
}

func (a *Adapter) buildRequest(ctx context.Context, info *request.Information) (*http.Request, error) {
	uri, err := info.GetURI()
	if err != nil {
		return nil, err
	}
	if uri.Scheme == "" || uri.Host == "" {
		return nil, errors.Configuration("the request url is not absolute").WithDetail("url", uri.String())
	}

	ctx = middleware.WithOptions(ctx, info.GetRequestOptions()...)
	var req *http.Request
	if len(info.Content) > 0 {
		req, err = http.NewRequestWithContext(ctx, info.Method.String(), uri.String(), bytes.NewReader(info.Content))
	} else {
		req, err = http.NewRequestWithContext(ctx, info.Method.String(), uri.String(), nil)
	}
	if err != nil {
		return nil, errors.Configuration("failed to create the http request").WithCause(err)
	}

	if info.Headers != nil {
		for _, key := range info.Headers.ListKeys() {
			for _, value := range info.Headers.Get(key) {
				req.Header.Add(key, value)
			}
		}
	}
	for key, value := range a.config.Headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
	return req, nil
}
