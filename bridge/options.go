package bridge

import (
	"time"

	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
)

// UnitCompletion decides when a unit-mode wiring completes.
type UnitCompletion int

const (
	// CompleteWithInput completes the wiring only after the input terminates
	// and every in-flight unit has finished.
	CompleteWithInput UnitCompletion = iota
	// CompleteWhenIdle completes the wiring once every started unit has
	// finished and no input is queued, or when the input terminates. It
	// suits single-request wirings: input arriving after the completion is
	// dropped and reported as INPUT_DROPPED.
	CompleteWhenIdle
)

func (u UnitCompletion) String() string {
	if u == CompleteWhenIdle {
		return "when_idle"
	}
	return "with_input"
}

const defaultCloseTimeout = 5 * time.Second

// Option configures a wiring.
type Option func(*options)

type options struct {
	log          *logger.Logger
	metrics      *observability.BridgeMetrics
	name         string
	tracing      bool
	completion   UnitCompletion
	closeTimeout time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{closeTimeout: defaultCloseTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return o
}

// WithLogger sets the wiring logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records wiring traffic on m.
func WithMetrics(m *observability.BridgeMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithName names the worker in logs, metrics and spans. Defaults to the
// worker's Go type.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTracing wraps the wiring lifetime in a span.
func WithTracing(enabled bool) Option {
	return func(o *options) { o.tracing = enabled }
}

// WithUnitCompletion picks the completion policy for unit-mode workers.
func WithUnitCompletion(c UnitCompletion) Option {
	return func(o *options) { o.completion = c }
}

// WithCloseTimeout bounds the worker Close call made on release.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) { o.closeTimeout = d }
}
