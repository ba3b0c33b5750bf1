package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
)

// App owns a binary's lifecycle. C is the config type.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(srv.Start)
//	app.OnStop(srv.Stop)
//	err = app.Run(ctx)
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	gracefulTimeout time.Duration
	signals         []os.Signal

	onStart []Hook
	onStop  []Hook
}

// NewApp applies defaults, validates cfg and builds the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.signals != nil {
		app.signals = o.signals
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		app.Logger = logger.Init(base.Logging)
	}

	if tc, ok := any(cfg).(TelemetryConfig); ok {
		app.OnStart(app.telemetryHook(tc.GetObservability()))
	}
	return app, nil
}

// telemetryHook installs the providers on start and flushes them last.
func (a *App[C]) telemetryHook(cfg *observability.Config) Hook {
	return func(ctx context.Context) error {
		if cfg.ServiceName == "" {
			cfg.ServiceName = a.Name
		}
		if cfg.ServiceVersion == "" {
			cfg.ServiceVersion = a.Version
		}
		shutdown, err := observability.Init(ctx, *cfg)
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		// Prepended so it runs after every other stop hook.
		a.onStop = append([]Hook{Hook(shutdown)}, a.onStop...)
		return nil
	}
}

// Run starts the app and blocks until a signal or ctx ends, then stops.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return stderrors.Join(err, a.stop())
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the app, runs task until it returns or a signal cancels
// it, then stops.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return stderrors.Join(err, a.stop())
	}

	taskCtx, cancel := signal.NotifyContext(ctx, a.signals...)
	defer cancel()

	taskErr := task(taskCtx)
	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	a.Logger.Info("Application started", logger.DurationFields("startup", time.Since(start)))
	return nil
}

// WaitForSignal blocks until a shutdown signal or ctx cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// stop runs the stop hooks in reverse registration order. Every hook runs
// even when an earlier one fails.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		if err := a.onStop[i](ctx); err != nil {
			a.Logger.Error("Stop hook failed", logger.ErrorFields("stop", err))
			errs = append(errs, err)
		}
	}
	a.Logger.Info("Application shutdown complete")
	return stderrors.Join(errs...)
}
