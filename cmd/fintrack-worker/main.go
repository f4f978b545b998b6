package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting fintrack-worker")

	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("The worker mirrors to Google Sheets and needs its settings", "error", err)
		os.Exit(1)
	}

	local, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer local.Close()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if n, err := local.Count(startCtx); err != nil {
		cancelStart()
		logger.Error("Failed to read local ledger", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	} else {
		logger.Info("Opened local ledger", "path", cfg.SQLiteDBPath, "entries", n)
	}
	mirror, err := backend.NewFactory(logger).CreateSheetsStore(startCtx, backendConfig)
	if err != nil {
		cancelStart()
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(startCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cancelStart()
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
	} else {
		logger.Info("AMQP disabled - relying on periodic mirror only")
	}
	cancelStart()

	syncWorker := worker.NewSyncWorker(local, mirror)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerChanges(gctx, syncWorker.HandleChange)
		})
	}

	g.Go(func() error {
		logger.Info("Performing startup mirror")
		if err := syncWorker.Mirror(gctx); err != nil {
			logger.Error("Startup mirror failed", "error", err)
		}

		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.Mirror(gctx); err != nil {
					logger.Error("Periodic mirror failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
