// Package observability wires OpenTelemetry tracing and metrics for worker
// bridges.
//
// Tracing and metrics export over OTLP/HTTP:
//
//	shutdown, err := observability.Init(ctx, cfg)
//	defer shutdown(ctx)
//
// Bridge instruments record traffic per wiring:
//
//	m, err := observability.NewBridgeMetrics(observability.Meter("workerbridge"))
//	m.MessagePosted(ctx, "double", "N", 0)
//
// A nil *BridgeMetrics is valid and records nothing.
package observability
