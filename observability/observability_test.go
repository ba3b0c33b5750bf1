package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/workerbridge/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("bridge")
	assert.Equal(t, "bridge", cfg.ServiceName)
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, 15*time.Second, cfg.Interval)
	assert.True(t, cfg.Insecure)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	assert.NoError(t, cfg.Validate(), "disabled config is always valid")

	cfg = Config{Enabled: true}
	assert.True(t, errors.IsCode(cfg.Validate(), errors.ErrCodeInvalidInput))

	cfg = Config{Enabled: true, ServiceName: "x", SampleRate: 2}
	assert.True(t, errors.IsCode(cfg.Validate(), errors.ErrCodeInvalidInput))

	cfg = Config{ServiceName: "x"}
	cfg.ApplyDefaults()
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, "development", cfg.Environment)
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestBridgeMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewBridgeMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.WiringStarted(ctx, "double", "unit")
	m.MessageReceived(ctx, "double", "N")
	m.MessageReceived(ctx, "double", "C")
	m.MessagePosted(ctx, "double", "N", 2)
	m.MessagePosted(ctx, "double", "C", 0)
	m.RecordError(ctx, "double", "TRANSFORM_FAILURE")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumOf(t, rm, "messages.received"))
	assert.Equal(t, int64(2), sumOf(t, rm, "messages.posted"))
	assert.Equal(t, int64(2), sumOf(t, rm, "transferables.moved"))
	assert.Equal(t, int64(1), sumOf(t, rm, "wiring.active"))
	assert.Equal(t, int64(1), sumOf(t, rm, "errors.total"))

	m.WiringEnded(ctx, "double", "unit")
	rm = metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(0), sumOf(t, rm, "wiring.active"))
}

func TestBridgeMetrics_Nil(t *testing.T) {
	var m *BridgeMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.WiringStarted(ctx, "w", "unit")
		m.MessageReceived(ctx, "w", "N")
		m.MessagePosted(ctx, "w", "N", 1)
		m.RecordError(ctx, "w", "X")
		m.WiringEnded(ctx, "w", "unit")
	})
}

func TestSetSpanError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), SpanWiring)
	SetSpanError(span, nil)
	SetSpanError(span, stderrors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestServiceHealth(t *testing.T) {
	h := NewServiceHealth("bridge", "1.0.0")
	assert.Equal(t, HealthStatusUp, h.Status)

	h.AddComponent(Health{Name: "workers", Status: HealthStatusUp})
	assert.Equal(t, HealthStatusUp, h.Status)

	h.AddComponent(Health{Name: "otlp", Status: HealthStatusDegraded})
	assert.Equal(t, HealthStatusDegraded, h.Status)

	h.AddComponent(Health{Name: "listener", Status: HealthStatusDown})
	assert.Equal(t, HealthStatusDown, h.Status)
	assert.Len(t, h.Components, 3)
}
