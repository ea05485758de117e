// Command hushpayd runs the HushPay webhook server together with the
// outbound notification workers, the recurring payment scheduler and the
// price alert watcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"hushpay/internal/config"
	"hushpay/internal/observability/metrics"
	"hushpay/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("hushpayd: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("hushpayd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", os.Getenv("HUSHPAY_CONFIG"), "path to a JSON config file")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before the config")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	log := logger.Named("hushpayd")
	log.Info("starting",
		slog.String("addr", cfg.Server.Address),
		slog.String("store", cfg.Storage.Driver),
		slog.String("keyed", cfg.Keyed.Driver),
		slog.String("queue", cfg.Queue.Driver),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.server.Start(gctx) })
	g.Go(func() error { return app.dispatcher.Start(gctx) })
	g.Go(func() error { return app.scheduler.Run(gctx) })
	g.Go(func() error { return app.watcher.Run(gctx) })
	if len(app.sweepers) > 0 {
		g.Go(func() error { return sweep(gctx, app.sweepers) })
	}
	if cfg.Server.MetricsAddress != "" {
		g.Go(func() error { return metrics.StartServer(gctx, cfg.Server.MetricsAddress) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("stopped")
	return err
}
