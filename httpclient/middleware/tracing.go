package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gokiota/observability"
)

// TracingHandler opens a client span for every attempt that reaches it,
// propagates the trace context in the request headers and records request
// metrics. Placed last in the chain it sees each retry and redirect hop.
type TracingHandler struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	metrics    *observability.RequestMetrics
}

// NewTracingHandler creates a handler. A nil provider uses the global one;
// metrics may be nil.
func NewTracingHandler(provider trace.TracerProvider, metrics *observability.RequestMetrics) *TracingHandler {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &TracingHandler{
		tracer:     provider.Tracer(observability.TracerName),
		propagator: otel.GetTextMapPropagator(),
		metrics:    metrics,
	}
}

// Intercept implements Middleware.
func (h *TracingHandler) Intercept(pipeline Pipeline, index int, req *http.Request) (*http.Response, error) {
	resend, _ := strconv.Atoi(req.Header.Get(retryAttemptHeader))
	ctx, span := h.tracer.Start(req.Context(), observability.SpanAttempt,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrHTTPMethod, req.Method),
			attribute.String(observability.AttrURLFull, req.URL.String()),
			attribute.String(observability.AttrServerAddress, req.URL.Hostname()),
		),
	)
	defer span.End()
	if resend > 0 {
		span.SetAttributes(attribute.Int(observability.AttrResendCount, resend))
	}

	req = req.Clone(ctx)
	h.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	if h.metrics != nil {
		h.metrics.RecordRequestStart(ctx)
		if resend > 0 {
			h.metrics.RecordRetry(ctx, req.Method, req.URL.Host)
		}
	}
	start := time.Now()
	resp, err := pipeline.Next(req, index)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if h.metrics != nil {
		h.metrics.RecordRequestEnd(ctx, req.Method, req.URL.Host, status, time.Since(start))
	}
	if err != nil {
		observability.SetSpanError(span, err)
		return resp, err
	}
	span.SetAttributes(attribute.Int(observability.AttrStatusCode, status))
	if status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	return resp, nil
}
