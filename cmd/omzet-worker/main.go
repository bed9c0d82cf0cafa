// Command omzet-worker imports the record source into SQLite, on start-up,
// periodically and whenever a refresh request arrives over AMQP.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"omzet/internal/amqp"
	"omzet/internal/backend"
	"omzet/internal/cli"
	"omzet/internal/config"
	"omzet/internal/log"
	"omzet/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting omzet-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg, cfg.ImportBackend)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentSource).Slog()).CreateSource(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Close()

	w := worker.NewRefreshWorker(res.Source, repo, cfg.SQLiteTable, bcfg.Mapping)

	if err := w.StartupImport(ctx); err != nil {
		// The periodic import retries; keep running.
		logger.Error("Startup import failed", log.FieldOperation, log.OpImport, log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Periodic import enabled", "interval", cfg.RefreshInterval, log.FieldTable, cfg.SQLiteTable)
		return w.RunPeriodic(gctx, cfg.RefreshInterval)
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		g.Go(func() error {
			return client.ConsumeRefresh(gctx, w.Handle)
		})
	} else {
		logger.Info("AMQP disabled, serving periodic imports only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
