// Package middleware holds the net/http execution chain used by the request
// adapter. A Middleware intercepts a request, may rewrite it, and hands it
// to the next stage through the Pipeline; the last stage is the parent
// http.RoundTripper.
//
//	client := middleware.GetDefaultClient()
//	// or
//	transport := middleware.NewCustomTransport(nil,
//	    middleware.NewRedirectHandler(),
//	    middleware.NewRetryHandler(),
//	)
//
// CircuitBreakerHandler and RateLimitHandler keep state per host and are
// meant to be shared by every request of one client.
//
// Handlers read per-request options from the request context. The adapter
// places every request.Option of an Information there; callers using the
// transport directly can call WithOptions.
package middleware
