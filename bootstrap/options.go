package bootstrap

import (
	"os"
	"time"

	"github.com/kbukum/workerbridge/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	signals         []os.Signal
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds the stop hooks.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithSignals replaces the shutdown signals (SIGINT and SIGTERM).
func WithSignals(sigs ...os.Signal) Option {
	return func(o *appOptions) { o.signals = sigs }
}
