package bootstrap

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/workerbridge/config"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
	Observability        observability.Config `mapstructure:"observability"`
}

func (c *testConfig) GetObservability() *observability.Config { return &c.Observability }

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	app, err := NewApp(&testConfig{ServiceConfig: config.ServiceConfig{Name: "svc", Version: "1.0"}},
		WithLogger(logger.Nop()),
		WithGracefulTimeout(time.Second),
	)
	require.NoError(t, err)
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, "svc", app.Name)
	assert.Equal(t, "1.0", app.Version)
	assert.Equal(t, "development", app.Cfg.Environment)
	assert.Len(t, app.onStart, 1, "telemetry hook")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	_, err := NewApp(&testConfig{}, WithLogger(logger.Nop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation")
}

func TestRun_HookOrder(t *testing.T) {
	app := newTestApp(t)
	var calls []string
	record := func(name string) Hook {
		return func(context.Context) error {
			calls = append(calls, name)
			return nil
		}
	}
	app.OnStart(record("start-1"), record("start-2"))
	app.OnStop(record("stop-1"), record("stop-2"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))
	assert.Equal(t, []string{"start-1", "start-2", "stop-2", "stop-1"}, calls)
}

func TestRun_StartFailureStillStops(t *testing.T) {
	app := newTestApp(t)
	stopped := false
	app.OnStart(func(context.Context) error { return stderrors.New("bind failed") })
	app.OnStop(func(context.Context) error {
		stopped = true
		return nil
	})

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind failed")
	assert.True(t, stopped)
}

func TestRunTask(t *testing.T) {
	app := newTestApp(t)
	stopErr := stderrors.New("flush failed")
	app.OnStop(func(context.Context) error { return stopErr })

	ran := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.True(t, ran)
	assert.ErrorIs(t, err, stopErr)

	taskErr := stderrors.New("task failed")
	err = app.RunTask(context.Background(), func(context.Context) error { return taskErr })
	assert.ErrorIs(t, err, taskErr)
}

func TestRunTask_ContextCancel(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := app.RunTask(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}
