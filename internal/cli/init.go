// Package cli provides common initialization shared by the subtrack
// binaries: env loading, logging, config, store selection and shutdown.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"subtrack/internal/config"
	applog "subtrack/internal/log"
	"subtrack/internal/store"
)

// LoadEnvFile pulls in a local .env when one exists. Deployments set
// real environment variables instead, so a missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger installs the process-wide structured logger. The level
// string comes from the environment so logging works before the full
// config is loaded.
func SetupLogger(level string) *applog.Logger {
	return applog.Setup(level)
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured persistence backend.
// Returns the backend or exits the process on failure.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) *store.BackendResult {
	factory := store.NewFactory(logger.Logger)
	backend, err := factory.CreateBackend(ctx, store.Config{
		Type:         store.BackendType(cfg.DataBackend),
		DataDir:      cfg.DataDir,
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		logger.Error("Failed to initialize store backend",
			"backend", cfg.DataBackend, "error", err)
		os.Exit(1)
	}
	return backend
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM,
// runs cleanup, then gives in-flight work a short drain before the
// done channel closes. timeout caps the whole teardown.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)

		sig := <-sigs
		logger.Info("Shutdown signal received", "signal", sig.String())

		deadline := time.NewTimer(timeout)
		defer deadline.Stop()

		if cleanup != nil {
			cleanup()
		}
		cancel()

		select {
		case <-deadline.C:
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown goroutine has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
