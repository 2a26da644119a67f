// Package httpclient executes request.Information descriptions over HTTP.
//
// An Adapter resolves the URL template against its base URL, authenticates
// the request with an auth.AuthenticationProvider, sends it through a
// middleware chain (see package middleware) and maps the response onto
// models with the configured parse node factory. Non-2xx responses are
// turned into the typed error registered in ErrorMappings, or an
// *errors.APIError.
//
// # Basic Usage
//
//	adapter, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com/v1",
//	}, auth.AnonymousAuthenticationProvider{})
//
//	info := request.NewInformationWithMethodAndURLTemplateAndPathParameters(
//	    request.GET, "{+baseurl}/users/{id}", map[string]string{"id": "42"})
//	user, err := httpclient.SendAs[*User](ctx, adapter, info, NewUser, httpclient.ErrorMappings{
//	    "4XX": NewProblem,
//	})
//
// # Configuration
//
// Config carries yaml and mapstructure tags, so it can be loaded with
// config.LoadConfig. It drives the default middleware chain: user agent,
// parameter name decoding, telemetry, headers inspection, redirect, retry
// and compression. Circuit breaking, rate limiting, tracing and chaos are
// opt-in:
//
//	http:
//	  base_url: https://api.example.com/v1
//	  circuit_breaker:
//	    enabled: true
//	  rate_limit:
//	    requests_per_second: 20
package httpclient
