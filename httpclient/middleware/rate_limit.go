package middleware

import (
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kbukum/gokiota/errors"
)

// RateLimitOptions configures the rate limit handler.
type RateLimitOptions struct {
	// RequestsPerSecond is the sustained rate allowed per host. Zero or less
	// disables limiting.
	RequestsPerSecond float64
	// Burst is the number of requests allowed at once. Defaults to the
	// rate rounded up, and at least 1.
	Burst int
	// MaxHosts caps the number of hosts tracked. The least recently used
	// host is forgotten first and starts again with a full burst. Defaults
	// to 1024.
	MaxHosts int
}

const defaultMaxHosts = 1024

// RateLimitHandler delays requests so each host sees at most the configured
// rate. A request whose context ends while waiting fails with a TIMEOUT
// error.
type RateLimitHandler struct {
	limit    rate.Limit
	burst    int
	maxHosts int
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*hostLimiter
}

type hostLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewRateLimitHandler creates a handler with the given options.
func NewRateLimitHandler(options RateLimitOptions) *RateLimitHandler {
	limit := rate.Inf
	if options.RequestsPerSecond > 0 {
		limit = rate.Limit(options.RequestsPerSecond)
	}
	burst := options.Burst
	if burst <= 0 {
		burst = max(1, int(math.Ceil(options.RequestsPerSecond)))
	}
	maxHosts := options.MaxHosts
	if maxHosts <= 0 {
		maxHosts = defaultMaxHosts
	}
	return &RateLimitHandler{
		limit:    limit,
		burst:    burst,
		maxHosts: maxHosts,
		now:      time.Now,
		limiters: make(map[string]*hostLimiter),
	}
}

// Intercept implements Middleware.
func (h *RateLimitHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	if h.limit != rate.Inf {
		if err := h.limiter(req.URL.Host).Wait(req.Context()); err != nil {
			return nil, errors.Timeout(err).WithDetail("host", req.URL.Host)
		}
	}
	return pipeline.Next(req, index)
}

// Hosts returns the number of hosts currently tracked.
func (h *RateLimitHandler) Hosts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}

func (h *RateLimitHandler) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	l, ok := h.limiters[host]
	if !ok {
		if len(h.limiters) >= h.maxHosts {
			h.evictOldest()
		}
		l = &hostLimiter{limiter: rate.NewLimiter(h.limit, h.burst)}
		h.limiters[host] = l
	}
	l.lastUsed = now
	return l.limiter
}

// evictOldest drops the least recently used host. The caller holds h.mu.
func (h *RateLimitHandler) evictOldest() {
	var oldest string
	var at time.Time
	found := false
	for host, l := range h.limiters {
		if !found || l.lastUsed.Before(at) {
			oldest, at, found = host, l.lastUsed, true
		}
	}
	delete(h.limiters, oldest)
}
