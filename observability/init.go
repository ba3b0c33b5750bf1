package observability

import (
	"context"
	stderrors "errors"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(ctx context.Context) error

// Init installs tracer and meter providers when cfg.Enabled is set. The
// returned func is always non-nil.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return noop, err
	}

	tp, err := InitTracer(ctx, cfg)
	if err != nil {
		return noop, err
	}
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noop, err
	}

	return func(ctx context.Context) error {
		return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
