// Command omzet serves the revenue dashboard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"omzet/internal/amqp"
	"omzet/internal/backend"
	"omzet/internal/cache"
	"omzet/internal/cli"
	"omzet/internal/config"
	"omzet/internal/format"
	apphttp "omzet/internal/http"
	"omzet/internal/log"
	"omzet/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg, cfg.DataBackend)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentSource).Slog()).CreateSource(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Close()

	tag, err := format.ParseLanguage(cfg.Locale)
	if err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	formatter := format.New(format.WithLanguage(tag), format.WithCurrencySymbol(cfg.CurrencySymbol))

	// AMQP is optional: without it a refresh only reloads this process.
	var requester services.RefreshRequester
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without background refresh", log.FieldError, err)
		} else {
			defer client.Close()
			requester = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewDashboardService(res.Source, services.Options{
		SnapshotTTL: cfg.RefreshInterval,
		Formatter:   &formatter,
		Requester:   requester,
		Table:       cfg.SQLiteTable,
	})

	caches := cache.NewManager()
	svc.RegisterCaches(caches)
	caches.Start(ctx, time.Minute)
	logger.WithComponent(log.ComponentCache).Debug("Cache cleanup started", "interval", time.Minute)
	defer caches.Stop()

	// Warm the snapshot; a source that is down now may be up by the first request.
	if _, err := svc.Snapshot(ctx); err != nil {
		logger.Warn("Initial snapshot load failed", log.FieldOperation, log.OpStartup, log.FieldError, err)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting omzet server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"schema", cfg.Schema,
			"locale", tag.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
