package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/insight"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)
	appLogger := applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentApp})

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(startCtx, backendConfig)
	if err != nil {
		cancelStart()
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	gen, err := insight.NewGenerator(startCtx, insight.Config{
		Provider:    cfg.InsightProvider,
		OpenAIKey:   cfg.OpenAIAPIKey,
		OpenAIModel: cfg.OpenAIModel,
		GeminiKey:   cfg.GeminiAPIKey,
		GeminiModel: cfg.GeminiModel,
	})
	cancelStart()
	if err != nil {
		logger.Error("Failed to create insight provider", "error", err, "provider", cfg.InsightProvider)
		os.Exit(1)
	}
	requester := insight.NewRequester(gen, insight.Options{
		Timeout:       cfg.InsightTimeout,
		CacheTTL:      cfg.InsightCacheTTL,
		RatePerMinute: cfg.InsightRatePerMinute,
	})

	// The service closes the store and publisher it was given.
	svc := services.NewLedgerService(result.Store, result.Publisher, ledger.Options{LegacyPeriods: cfg.LegacyPeriods})
	srv := apphttp.NewServer(":"+cfg.Port, svc, requester, appLogger, apphttp.Options{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := requester.Close(); err != nil {
			logger.Warn("Insight client close error", "error", err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"insight_provider", requester.Provider(),
		"amqp_enabled", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
