package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/core"
	apphttp "subtrack/internal/http"
	applog "subtrack/internal/log"
	"subtrack/internal/rates"
	"subtrack/internal/service"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting subtrack")

	cfg := cli.LoadAndValidateConfig(logger)

	// Persistence backend per config: csv, sqlite or memory.
	backend := cli.OpenStore(context.Background(), logger, cfg)
	if backend.Cleanup != nil {
		defer backend.Cleanup()
	}

	// Exchange rates from the Bank of Thailand feed, cached on disk so
	// restarts and feed outages fall back to the last known fixings.
	converter := rates.NewService(
		rates.NewClient(cfg.BOTAPIToken),
		rates.NewFileCache(cfg.RatesCachePath()),
		cfg.RatesCacheTTL,
		logger.Logger,
	)

	// AMQP publisher is optional: without a broker, writes skip the
	// mirror refresh and the spreadsheet catches up on the renewal
	// daemon's schedule.
	var publisher service.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without mirror sync", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized - writes will queue mirror refreshes")
		}
	} else {
		logger.Info("AMQP disabled - mirror refreshes ride on the renewal daemon")
	}

	catalog := core.LoadCatalog(cfg.DataDir)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		Store:         backend.Store,
		Subscriptions: service.NewSubscriptionService(backend.Store, catalog, publisher),
		Summaries:     service.NewSummaryService(converter, cfg.WarningDays),
		History:       service.NewHistoryService(cfg.HistoryPath()),
		Rates:         converter,
		Catalog:       catalog,
		BaseCurrency:  cfg.BaseCurrency,
		Logger:        logger.WithComponent(applog.ComponentHTTP),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	// Warm the rate cache off the request path.
	go converter.Rates(ctx, false)

	logger.Info("Starting subtrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"base_currency", cfg.BaseCurrency)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
