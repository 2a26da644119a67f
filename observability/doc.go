// Package observability wires OpenTelemetry tracing and metrics for API
// clients built on gokiota.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-client"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-client"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewRequestMetrics(observability.Meter("my-client"))
//	metrics.RecordRequestEnd(ctx, "GET", "api.example.com", 200, duration)
package observability
