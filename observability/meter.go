package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/workerbridge/logger"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The provider should be shut down on application exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// BridgeMetrics holds the instruments recorded by worker wirings.
type BridgeMetrics struct {
	received metric.Int64Counter
	posted   metric.Int64Counter
	transfer metric.Int64Counter
	active   metric.Int64UpDownCounter
	errors   metric.Int64Counter
}

// NewBridgeMetrics creates the bridge instruments on meter.
func NewBridgeMetrics(meter metric.Meter) (*BridgeMetrics, error) {
	received, err := meter.Int64Counter("messages.received",
		metric.WithDescription("Inbound notifications delivered to workers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating messages.received counter: %w", err)
	}

	posted, err := meter.Int64Counter("messages.posted",
		metric.WithDescription("Outbound notifications posted by workers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating messages.posted counter: %w", err)
	}

	transfer, err := meter.Int64Counter("transferables.moved",
		metric.WithDescription("Transferable objects handed over with outbound notifications"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transferables.moved counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("wiring.active",
		metric.WithDescription("Number of live worker wirings"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wiring.active gauge: %w", err)
	}

	errs, err := meter.Int64Counter("errors.total",
		metric.WithDescription("Wiring errors by code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating errors.total counter: %w", err)
	}

	return &BridgeMetrics{
		received: received,
		posted:   posted,
		transfer: transfer,
		active:   active,
		errors:   errs,
	}, nil
}

// WiringStarted increments the live wiring count.
func (m *BridgeMetrics) WiringStarted(ctx context.Context, worker, mode string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, metric.WithAttributes(
		attribute.String("worker", worker),
		attribute.String("mode", mode),
	))
}

// WiringEnded decrements the live wiring count.
func (m *BridgeMetrics) WiringEnded(ctx context.Context, worker, mode string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1, metric.WithAttributes(
		attribute.String("worker", worker),
		attribute.String("mode", mode),
	))
}

// MessageReceived counts one inbound notification.
func (m *BridgeMetrics) MessageReceived(ctx context.Context, worker, kind string) {
	if m == nil {
		return
	}
	m.received.Add(ctx, 1, metric.WithAttributes(
		attribute.String("worker", worker),
		attribute.String("kind", kind),
	))
}

// MessagePosted counts one outbound notification and its transferables.
func (m *BridgeMetrics) MessagePosted(ctx context.Context, worker, kind string, transferables int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("worker", worker),
		attribute.String("kind", kind),
	)
	m.posted.Add(ctx, 1, attrs)
	if transferables > 0 {
		m.transfer.Add(ctx, int64(transferables), metric.WithAttributes(attribute.String("worker", worker)))
	}
}

// RecordError counts one wiring error by code.
func (m *BridgeMetrics) RecordError(ctx context.Context, worker, code string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("worker", worker),
		attribute.String("code", code),
	))
}
