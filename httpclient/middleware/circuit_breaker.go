package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/gokiota/errors"
	"github.com/kbukum/gokiota/logger"
)

// CircuitState is the state of one host's circuit.
type CircuitState int

const (
	// CircuitClosed lets requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen refuses requests until OpenTimeout has passed.
	CircuitOpen
	// CircuitHalfOpen lets a limited number of trial requests through.
	CircuitHalfOpen
)

// String returns the state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerOptions configures the circuit breaker handler.
type CircuitBreakerOptions struct {
	// MaxFailures is the number of consecutive failures opening a circuit.
	// Defaults to 5.
	MaxFailures int
	// OpenTimeout is how long a circuit stays open before trial requests are allowed. Defaults
	// to 30 seconds.
	OpenTimeout time.Duration
	// HalfOpenMaxCalls is the number of trial requests allowed while half-open, and
	// the number of successes closing the circuit again. Defaults to 1.
	HalfOpenMaxCalls int
	// IsFailure classifies an attempt. Nil counts transport errors and 5xx
	// responses.
	IsFailure func(resp *http.Response, err error) bool
	// OnStateChange is called after a host's circuit changes state.
	OnStateChange func(host string, from, to CircuitState)
	// MaxHosts caps the number of circuits kept. When full, the least
	// recently used closed circuit is dropped, or the least recently used
	// circuit when none is closed. Defaults to 1024.
	MaxHosts int
}

func (o *CircuitBreakerOptions) applyDefaults() {
	if o.MaxFailures <= 0 {
		o.MaxFailures = 5
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = 30 * time.Second
	}
	if o.HalfOpenMaxCalls <= 0 {
		o.HalfOpenMaxCalls = 1
	}
	if o.MaxHosts <= 0 {
		o.MaxHosts = defaultMaxHosts
	}
}

func (o *CircuitBreakerOptions) isFailure(resp *http.Response, err error) bool {
	if o.IsFailure != nil {
		return o.IsFailure(resp, err)
	}
	return err != nil || resp == nil || resp.StatusCode >= http.StatusInternalServerError
}

// CircuitBreakerHandler fails fast for hosts that keep failing. Each host
// has its own circuit. A refused request returns an error with code
// CIRCUIT_OPEN without reaching the network.
type CircuitBreakerHandler struct {
	options CircuitBreakerOptions
	now     func() time.Time

	mu       sync.Mutex
	circuits map[string]*circuit
}

type circuit struct {
	state         CircuitState
	failures      int
	successes     int
	halfOpenCalls int
	openedAt      time.Time
	lastUsed      time.Time
}

type transition struct {
	from, to CircuitState
}

// NewCircuitBreakerHandler creates a handler with default options.
func NewCircuitBreakerHandler() *CircuitBreakerHandler {
	return NewCircuitBreakerHandlerWithOptions(CircuitBreakerOptions{})
}

// NewCircuitBreakerHandlerWithOptions creates a handler with the given options.
func NewCircuitBreakerHandlerWithOptions(options CircuitBreakerOptions) *CircuitBreakerHandler {
	options.applyDefaults()
	return &CircuitBreakerHandler{
		options:  options,
		now:      time.Now,
		circuits: make(map[string]*circuit),
	}
}

// Intercept implements Middleware.
func (h *CircuitBreakerHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if !h.allow(host) {
		componentLogger().Debug("circuit open, refusing request", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldHost, host,
		))
		return nil, errors.CircuitOpen(host)
	}
	resp, err := pipeline.Next(req, index)
	h.record(host, h.options.isFailure(resp, err))
	return resp, err
}

// State returns the current state of host's circuit.
func (h *CircuitBreakerHandler) State(host string) CircuitState {
	h.mu.Lock()
	c, ok := h.circuits[host]
	if !ok {
		h.mu.Unlock()
		return CircuitClosed
	}
	t, changed := h.expire(c)
	state := c.state
	h.mu.Unlock()
	h.notify(host, t, changed)
	return state
}

// Reset closes every circuit.
func (h *CircuitBreakerHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.circuits = make(map[string]*circuit)
}

func (h *CircuitBreakerHandler) allow(host string) bool {
	h.mu.Lock()
	c, ok := h.circuits[host]
	if !ok {
		if len(h.circuits) >= h.options.MaxHosts {
			h.evict()
		}
		c = &circuit{}
		h.circuits[host] = c
	}
	c.lastUsed = h.now()
	t, changed := h.expire(c)
	allowed := false
	switch c.state {
	case CircuitClosed:
		allowed = true
	case CircuitHalfOpen:
		if c.halfOpenCalls < h.options.HalfOpenMaxCalls {
			c.halfOpenCalls++
			allowed = true
		}
	}
	h.mu.Unlock()
	h.notify(host, t, changed)
	return allowed
}

func (h *CircuitBreakerHandler) record(host string, failed bool) {
	h.mu.Lock()
	c, ok := h.circuits[host]
	if !ok {
		h.mu.Unlock()
		return
	}
	var t transition
	var changed bool
	if failed {
		c.failures++
		switch c.state {
		case CircuitClosed:
			if c.failures >= h.options.MaxFailures {
				t, changed = h.move(c, CircuitOpen)
			}
		case CircuitHalfOpen:
			t, changed = h.move(c, CircuitOpen)
		}
	} else {
		switch c.state {
		case CircuitClosed:
			c.failures = 0
		case CircuitHalfOpen:
			c.successes++
			if c.successes >= h.options.HalfOpenMaxCalls {
				t, changed = h.move(c, CircuitClosed)
			}
		}
	}
	h.mu.Unlock()
	h.notify(host, t, changed)
}

// Hosts returns the number of circuits currently kept.
func (h *CircuitBreakerHandler) Hosts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.circuits)
}

// evict drops the least recently used closed circuit, or the least recently
// used circuit when none is closed. The caller holds h.mu.
func (h *CircuitBreakerHandler) evict() {
	var victim string
	var at time.Time
	found, closed := false, false
	for host, c := range h.circuits {
		isClosed := c.state == CircuitClosed
		switch {
		case !found:
		case isClosed && !closed:
		case isClosed == closed && c.lastUsed.Before(at):
		default:
			continue
		}
		victim, closed, at, found = host, isClosed, c.lastUsed, true
	}
	delete(h.circuits, victim)
}

// expire moves an open circuit to half-open once OpenTimeout has passed.
// The caller holds h.mu.
func (h *CircuitBreakerHandler) expire(c *circuit) (transition, bool) {
	if c.state == CircuitOpen && h.now().Sub(c.openedAt) >= h.options.OpenTimeout {
		return h.move(c, CircuitHalfOpen)
	}
	return transition{}, false
}

// move changes state and resets the counters. The caller holds h.mu.
func (h *CircuitBreakerHandler) move(c *circuit, to CircuitState) (transition, bool) {
	if c.state == to {
		return transition{}, false
	}
	t := transition{from: c.state, to: to}
	c.state = to
	c.successes = 0
	c.halfOpenCalls = 0
	switch to {
	case CircuitClosed:
		c.failures = 0
	case CircuitOpen:
		c.openedAt = h.now()
	}
	return t, true
}

func (h *CircuitBreakerHandler) notify(host string, t transition, changed bool) {
	if !changed {
		return
	}
	componentLogger().Info("circuit state changed", logger.Fields(
		logger.FieldHost, host,
		"from", t.from.String(),
		"to", t.to.String(),
	))
	if h.options.OnStateChange != nil {
		h.options.OnStateChange(host, t.from, t.to)
	}
}
