package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/gokiota/auth"
	"github.com/kbukum/gokiota/config"
	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/httpclient"
	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/observability"
	"github.com/kbukum/gokiota/request"
	"github.com/kbukum/gokiota/serialization"
	"github.com/kbukum/gokiota/version"
)

const clientName = "kiotactl"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// Config is the kiotactl configuration file layout.
type Config struct {
	config.ClientConfig `yaml:",inline" mapstructure:",squash"`

	HTTP      httpclient.Config `yaml:"http" mapstructure:"http"`
	Auth      auth.Config       `yaml:"auth" mapstructure:"auth"`
	Telemetry TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig enables OTLP export of spans and request metrics.
type TelemetryConfig struct {
	Enabled bool                       `yaml:"enabled" mapstructure:"enabled"`
	Tracer  observability.TracerConfig `yaml:"tracer" mapstructure:"tracer"`
	Meter   observability.MeterConfig  `yaml:"meter" mapstructure:"meter"`
}

type flags struct {
	configFile  string
	envFile     string
	method      string
	headers     []string
	data        string
	contentType string
	baseURL     string
	verbose     bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, error) {
	f := &flags{}
	fs := pflag.NewFlagSet(clientName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.configFile, "config", "c", "", "config file path")
	fs.StringVar(&f.envFile, "env-file", "", ".env file path")
	fs.StringVarP(&f.method, "method", "X", string(request.GET), "HTTP method")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, `request header as "Name: value", repeatable`)
	fs.StringVarP(&f.data, "data", "d", "", "request body")
	fs.StringVar(&f.contentType, "content-type", "application/json", "content type of --data")
	fs.StringVar(&f.baseURL, "base-url", "", "override http.base_url")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	fs.BoolVar(&f.showVersion, "version", false, "print the version and exit")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: %s [flags] <url-template|url>\n", clientName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func loadConfig(f *flags) (*Config, error) {
	cfg := &Config{}
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	opts = append(opts, config.WithEnvPrefix("KIOTACTL"))
	if err := config.LoadConfig(clientName, cfg, opts...); err != nil {
		return nil, errors.Configuration("failed to load configuration").WithCause(err)
	}
	if cfg.Name == "" {
		cfg.Name = clientName
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
	if f.baseURL != "" {
		cfg.HTTP.BaseURL = f.baseURL
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration("invalid configuration").WithCause(err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, rest, err := parseFlags(args, stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	if f.showVersion {
		_, _ = fmt.Fprintf(stdout, "%s %s\n", clientName, version.Get())
		return exitOK
	}
	if len(rest) != 1 {
		_, _ = fmt.Fprintf(stderr, "expected one url argument, got %d\n", len(rest))
		return exitUsage
	}

	cfg, err := loadConfig(f)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}
	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, stderr)
	logger.SetGlobalLogger(log)

	shutdown, err := startTelemetry(ctx, cfg)
	if err != nil {
		log.Error("telemetry setup failed", logger.Fields(logger.FieldError, err.Error()))
		return exitFailure
	}
	defer shutdown()

	out, err := send(ctx, cfg, f, rest[0], log)
	if err != nil {
		if code, ok := errors.StatusCode(err); ok {
			_, _ = fmt.Fprintf(stderr, "request failed with status %d\n", code)
		} else {
			_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		}
		return exitFailure
	}
	_, _ = stdout.Write(out)
	return exitOK
}

func send(ctx context.Context, cfg *Config, f *flags, target string, log *logger.Logger) ([]byte, error) {
	provider, err := auth.NewProvider(cfg.Auth, nil)
	if err != nil {
		return nil, err
	}
	cfg.HTTP.Name = cfg.Name
	adapter, err := httpclient.New(cfg.HTTP, provider, httpclient.WithLogger(log.WithComponent("httpclient")))
	if err != nil {
		return nil, err
	}
	info, err := buildInformation(f, target)
	if err != nil {
		return nil, err
	}
	info.AddRequestOptions(&httpclient.ResponseHandlerOption{Handler: readBody})
	v, err := adapter.SendPrimitive(ctx, info, serialization.KindByteArray, nil)
	if err != nil {
		return nil, err
	}
	body, _ := v.([]byte)
	return body, nil
}

func readBody(resp *http.Response, _ httpclient.ErrorMappings) (any, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transport(err)
	}
	return body, nil
}

func buildInformation(f *flags, target string) (*request.Information, error) {
	info := request.NewInformation()
	info.Method = request.Method(strings.ToUpper(f.method))
	if strings.Contains(target, "{") {
		info.URLTemplate = target
	} else {
		info.PathParameters[request.RawURLKey] = target
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.Configuration("invalid header").WithDetail("header", h)
		}
		info.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if f.data != "" {
		info.SetStreamContentAndContentType([]byte(f.data), f.contentType)
	}
	return info, nil
}

func startTelemetry(ctx context.Context, cfg *Config) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}
	tracerCfg := cfg.Telemetry.Tracer
	if tracerCfg.ServiceName == "" {
		tracerCfg = observability.DefaultTracerConfig(cfg.Name)
	}
	tp, err := observability.InitTracer(ctx, tracerCfg)
	if err != nil {
		return nil, err
	}
	meterCfg := cfg.Telemetry.Meter
	if meterCfg.ServiceName == "" {
		meterCfg = observability.DefaultMeterConfig(cfg.Name)
	}
	mp, err := observability.InitMeter(ctx, meterCfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	cfg.HTTP.Tracing.Enabled = true
	return func() {
		shutdownCtx := context.WithoutCancel(ctx)
		_ = mp.Shutdown(shutdownCtx)
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}
