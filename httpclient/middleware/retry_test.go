package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestRetryHandler(options RetryHandlerOptions) (*RetryHandler, *[]time.Duration) {
	var delays []time.Duration
	h := NewRetryHandlerWithOptions(options)
	h.jitter = func() float64 { return 0 }
	h.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return h, &delays
}

func TestRetryHandler_RetriesUntilMax(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusServiceUnavailable}}
	h, delays := newTestRetryHandler(RetryHandlerOptions{})
	transport := NewCustomTransport(rt, h)

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/items", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected final 503, got %d", resp.StatusCode)
	}
	if rt.calls() != 4 {
		t.Fatalf("expected 1 call plus 3 retries, got %d", rt.calls())
	}
	for i, r := range rt.requests[1:] {
		if got, want := r.Header.Get("Retry-Attempt"), string(rune('1'+i)); got != want {
			t.Errorf("retry %d: expected Retry-Attempt %s, got %q", i, want, got)
		}
	}
	if rt.requests[0].Header.Get("Retry-Attempt") != "" {
		t.Error("expected no Retry-Attempt on the first attempt")
	}
	want := []time.Duration{3 * time.Second, 4500 * time.Millisecond, 6500 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), *delays)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], (*delays)[i])
		}
	}
}

func TestRetryHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		wantCalls int
	}{
		{http.StatusOK, 1},
		{http.StatusInternalServerError, 1},
		{http.StatusNotFound, 1},
		{http.StatusTooManyRequests, 4},
		{http.StatusServiceUnavailable, 4},
		{http.StatusGatewayTimeout, 4},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rt := &recordingTransport{statuses: []int{tt.status}}
			h, _ := newTestRetryHandler(RetryHandlerOptions{})
			req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
			if _, err := NewCustomTransport(rt, h).RoundTrip(req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.calls() != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, rt.calls())
			}
		})
	}
}

func TestRetryHandler_SucceedsAfterThrottle(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusTooManyRequests, http.StatusOK}}
	h, _ := newTestRetryHandler(RetryHandlerOptions{})
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	resp, err := NewCustomTransport(rt, h).RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || rt.calls() != 2 {
		t.Errorf("expected 200 after 2 calls, got %d after %d", resp.StatusCode, rt.calls())
	}
}

func TestRetryHandler_RetryAfterHeader(t *testing.T) {
	rt := &recordingTransport{
		statuses: []int{http.StatusTooManyRequests, http.StatusOK},
		headers:  []http.Header{{"Retry-After": []string{"60"}}},
	}
	h, delays := newTestRetryHandler(RetryHandlerOptions{})
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	if _, err := NewCustomTransport(rt, h).RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*delays) != 1 || (*delays)[0] != 60*time.Second {
		t.Errorf("expected a single 60s sleep, got %v", *delays)
	}
}

func TestRetryHandler_BufferedBodyIsResent(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusServiceUnavailable, http.StatusOK}}
	h, _ := newTestRetryHandler(RetryHandlerOptions{})
	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com/", bytes.NewReader([]byte(`{"a":1}`)))
	if _, err := NewCustomTransport(rt, h).RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", rt.calls())
	}
	for i, body := range rt.bodies {
		if body != `{"a":1}` {
			t.Errorf("call %d: expected full body, got %q", i, body)
		}
	}
}

func TestRetryHandler_StreamedBodyNotRetried(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusServiceUnavailable}}
	h, _ := newTestRetryHandler(RetryHandlerOptions{})
	req, _ := http.NewRequest(http.MethodPut, "https://api.example.com/", io.NopCloser(strings.NewReader("stream")))
	if _, err := NewCustomTransport(rt, h).RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.calls() != 1 {
		t.Errorf("expected no retry for an unknown-length body, got %d calls", rt.calls())
	}
}

func TestRetryHandler_ShouldRetryVeto(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusServiceUnavailable}}
	var seen []int
	h, _ := newTestRetryHandler(RetryHandlerOptions{
		ShouldRetry: func(_ time.Duration, executionCount int, _ *http.Request, _ *http.Response) bool {
			seen = append(seen, executionCount)
			return executionCount < 2
		},
	})
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	if _, err := NewCustomTransport(rt, h).RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.calls() != 2 {
		t.Errorf("expected 2 calls, got %d", rt.calls())
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected execution counts [1 2], got %v", seen)
	}
}

func TestRetryHandler_RequestOptionOverrides(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusGatewayTimeout}}
	h, _ := newTestRetryHandler(RetryHandlerOptions{})
	ctx := WithOptions(context.Background(), &RetryHandlerOptions{MaxRetries: 1})
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.example.com/", nil)
	if _, err := NewCustomTransport(rt, h).RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.calls() != 2 {
		t.Errorf("expected 2 calls, got %d", rt.calls())
	}
}

func TestRetryHandler_TransportErrorNotRetried(t *testing.T) {
	calls := 0
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	h, _ := newTestRetryHandler(RetryHandlerOptions{})
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	if _, err := NewCustomTransport(failing, h).RoundTrip(req); err == nil {
		t.Fatal("expected transport error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryHandler_ContextCanceledDuringWait(t *testing.T) {
	rt := &recordingTransport{statuses: []int{http.StatusServiceUnavailable}}
	h := NewRetryHandler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.example.com/", nil)
	_, err := NewCustomTransport(rt, h).RoundTrip(req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if rt.calls() != 1 {
		t.Errorf("expected 1 call, got %d", rt.calls())
	}
}

func TestRetryHandlerOptions_Limits(t *testing.T) {
	tests := []struct {
		name        string
		options     RetryHandlerOptions
		wantRetries int
		wantDelay   int
	}{
		{"defaults", RetryHandlerOptions{}, 3, 3},
		{"negative", RetryHandlerOptions{MaxRetries: -1, DelaySeconds: -5}, 3, 3},
		{"in range", RetryHandlerOptions{MaxRetries: 7, DelaySeconds: 42}, 7, 42},
		{"capped", RetryHandlerOptions{MaxRetries: 50, DelaySeconds: 1000}, 10, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.options.GetMaxRetries(); got != tt.wantRetries {
				t.Errorf("expected %d retries, got %d", tt.wantRetries, got)
			}
			if got := tt.options.GetDelaySeconds(); got != tt.wantDelay {
				t.Errorf("expected %d delay seconds, got %d", tt.wantDelay, got)
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	empty := &http.Response{Header: http.Header{}}
	tests := []struct {
		name    string
		attempt int
		base    int
		jitter  float64
		want    time.Duration
	}{
		{"first attempt", 1, 3, 0, 3 * time.Second},
		{"first attempt with jitter", 1, 3, 0.5, 3500 * time.Millisecond},
		{"second attempt", 2, 3, 0, 4500 * time.Millisecond},
		{"fourth attempt", 4, 1, 0, 8500 * time.Millisecond},
		{"capped", 3, 180, 0.9, 180 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryDelay(empty, tt.attempt, tt.base, tt.jitter); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"", 0, false},
		{"5", 5 * time.Second, true},
		{"-1", 0, false},
		{"soon", 0, false},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second, true},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
	}
	for _, tt := range tests {
		got, ok := parseRetryAfter(tt.value, now)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("%q: expected %v/%v, got %v/%v", tt.value, tt.want, tt.wantOK, got, ok)
		}
	}
}
