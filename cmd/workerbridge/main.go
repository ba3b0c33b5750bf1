// Command workerbridge serves workers over websockets, or a single worker
// over length-prefixed stdin/stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/kbukum/workerbridge/bootstrap"
	"github.com/kbukum/workerbridge/bridge"
	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/config"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
	"github.com/kbukum/workerbridge/server"
	"github.com/kbukum/workerbridge/transport/framed"
	"github.com/kbukum/workerbridge/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "workerbridge:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("workerbridge", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to config.yml")
	showVersion := fs.Bool("version", false, "print the version and exit")
	fs.String("mode", "", "serve or stdio")
	fs.Int("server.port", 0, "listen port")
	fs.String("stdio.worker", "", "worker served in stdio mode")
	fs.String("stdio.codec", "", "codec used in stdio mode (json, cbor)")
	fs.String("logging.level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println("workerbridge", version.Get())
		return nil
	}

	var cfg AppConfig
	if err := config.Load("workerbridge", &cfg, config.WithConfigFile(*configFile), config.WithFlags(fs)); err != nil {
		return err
	}
	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}

	metrics, err := observability.NewBridgeMetrics(observability.Meter(cfg.Name))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	opts := []bridge.Option{
		bridge.WithLogger(app.Logger),
		bridge.WithMetrics(metrics),
		bridge.WithTracing(cfg.Observability.Enabled),
	}
	workers := catalog()

	if cfg.Mode == modeStdio {
		return app.RunTask(context.Background(), func(ctx context.Context) error {
			return serveStdio(ctx, cfg.Stdio, workers, framed.Stdio(), app.Logger, opts)
		})
	}

	reg := server.NewRegistry()
	if err := registerAll(reg, workers); err != nil {
		return err
	}
	srv := server.New(cfg.Server, reg, app.Logger,
		server.WithService(cfg.Name, cfg.Version),
		server.WithMetrics(metrics),
		server.WithTracing(cfg.Observability.Enabled),
	)
	app.OnStart(srv.Start)
	app.OnStop(srv.Stop)
	return app.Run(context.Background())
}

// serveStdio wires one worker to rw and blocks until the wiring ends or ctx
// is canceled.
func serveStdio(ctx context.Context, sc StdioConfig, workers map[string]workerEntry, rw io.ReadWriteCloser, log *logger.Logger, opts []bridge.Option) error {
	e, ok := workers[sc.Worker]
	if !ok {
		names := make([]string, 0, len(workers))
		for name := range workers {
			names = append(names, name)
		}
		sort.Strings(names)
		return errors.NotFound("worker", sc.Worker).WithDetail("available", names)
	}
	cdc, err := codec.NewRegistry().ByName(sc.Codec)
	if err != nil {
		return err
	}

	fopts := []framed.Option{framed.WithMaxFrameSize(sc.MaxFrameSize), framed.WithLogger(log)}
	h, err := e.stdio(ctx, rw, cdc, fopts, append(opts, bridge.WithName(sc.Worker)))
	if err != nil {
		return err
	}
	log.Info("Serving worker on stdio", map[string]interface{}{
		"worker":    sc.Worker,
		"codec":     cdc.ContentType(),
		"wiring_id": h.ID().String(),
	})

	select {
	case <-h.Done():
	case <-ctx.Done():
		h.Release()
	}
	return h.Err()
}
