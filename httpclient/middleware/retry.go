package middleware

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/gokiota/logger"
	"github.com/kbukum/gokiota/request"
)

const (
	defaultMaxRetries   = 3
	maxRetriesLimit     = 10
	defaultDelaySeconds = 3
	maxDelaySeconds     = 180
	retryAttemptHeader  = "Retry-Attempt"
	retryAfterHeader    = "Retry-After"
)

// RetryHandlerKey identifies RetryHandlerOptions.
var RetryHandlerKey = request.OptionKey{Key: "RetryHandler"}

// ShouldRetryFunc decides whether a retryable response is resent after delay.
// executionCount is the number of the attempt about to be made.
type ShouldRetryFunc func(delay time.Duration, executionCount int, req *http.Request, resp *http.Response) bool

// RetryHandlerOptions configures the retry handler. As a request option it
// overrides the handler defaults for that request.
type RetryHandlerOptions struct {
	// ShouldRetry vetoes a retry. Nil always allows it.
	ShouldRetry ShouldRetryFunc
	// MaxRetries defaults to 3 and is capped at 10.
	MaxRetries int
	// DelaySeconds defaults to 3 and is capped at 180.
	DelaySeconds int
}

// GetKey implements request.Option.
func (o *RetryHandlerOptions) GetKey() request.OptionKey {
	return RetryHandlerKey
}

// GetMaxRetries returns the effective retry limit.
func (o *RetryHandlerOptions) GetMaxRetries() int {
	switch {
	case o.MaxRetries < 1:
		return defaultMaxRetries
	case o.MaxRetries > maxRetriesLimit:
		return maxRetriesLimit
	default:
		return o.MaxRetries
	}
}

// GetDelaySeconds returns the effective base delay.
func (o *RetryHandlerOptions) GetDelaySeconds() int {
	switch {
	case o.DelaySeconds < 1:
		return defaultDelaySeconds
	case o.DelaySeconds > maxDelaySeconds:
		return maxDelaySeconds
	default:
		return o.DelaySeconds
	}
}

func (o *RetryHandlerOptions) shouldRetry(delay time.Duration, executionCount int, req *http.Request, resp *http.Response) bool {
	if o.ShouldRetry == nil {
		return true
	}
	return o.ShouldRetry(delay, executionCount, req, resp)
}

// RetryHandler resends requests answered with 429, 503 or 504.
type RetryHandler struct {
	options RetryHandlerOptions
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func() float64
}

// NewRetryHandler creates a retry handler with default options.
func NewRetryHandler() *RetryHandler {
	return NewRetryHandlerWithOptions(RetryHandlerOptions{})
}

// NewRetryHandlerWithOptions creates a retry handler with the given defaults.
func NewRetryHandlerWithOptions(options RetryHandlerOptions) *RetryHandler {
	return &RetryHandler{options: options, sleep: sleepContext, jitter: rand.Float64}
}

// Intercept implements Middleware.
func (h *RetryHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	resp, err := pipeline.Next(req, index)
	if err != nil {
		return resp, err
	}
	options := &h.options
	if o, ok := OptionFrom[*RetryHandlerOptions](req.Context(), RetryHandlerKey); ok {
		options = o
	}
	maxRetries := options.GetMaxRetries()
	baseDelay := options.GetDelaySeconds()

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if !isRetryableStatus(resp.StatusCode) || !isBufferable(req) {
			return resp, nil
		}
		delay := retryDelay(resp, attempt, baseDelay, h.jitter())
		if !options.shouldRetry(delay, attempt, req, resp) {
			return resp, nil
		}

		next, err := resetBody(req)
		if err != nil {
			return resp, nil
		}
		next.Header.Set(retryAttemptHeader, strconv.Itoa(attempt))

		componentLogger().Debug("retrying request", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldHost, req.URL.Host,
			logger.FieldStatus, resp.StatusCode,
			logger.FieldAttempt, attempt,
			logger.FieldDelay, delay.Milliseconds(),
		))

		drainAndClose(resp)
		if err := h.sleep(req.Context(), delay); err != nil {
			return nil, err
		}

		req = next
		resp, err = pipeline.Next(req, index)
		if err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// isBufferable reports whether the body can be sent again. Bodies of
// POST, PUT and PATCH need a known length and a GetBody function.
func isBufferable(req *http.Request) bool {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return true
	}
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	return len(req.TransferEncoding) == 0 && req.ContentLength > 0 && req.GetBody != nil
}

// resetBody clones req with a fresh body.
func resetBody(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.GetBody == nil || req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

// retryDelay computes the wait before attempt. Retry-After wins when present.
func retryDelay(resp *http.Response, attempt, baseDelay int, jitter float64) time.Duration {
	if d, ok := parseRetryAfter(resp.Header.Get(retryAfterHeader), time.Now()); ok {
		return d
	}
	seconds := float64(baseDelay) + jitter
	if attempt >= 2 {
		seconds += (math.Pow(2, float64(attempt)) - 1) * 0.5
	}
	if seconds > maxDelaySeconds {
		seconds = maxDelaySeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := at.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
