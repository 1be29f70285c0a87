// Package cli provides common CLI initialization utilities shared by the
// fintrack subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// SetupLogger builds the process logger from configuration and installs
// it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(cfg.LoggerConfig())
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// flagKeys maps command-line flags onto the config keys they override.
var flagKeys = map[string]string{
	"log-level":    config.KeyLogLevel,
	"log-format":   config.KeyLogFormat,
	"database-url": config.KeyDatabaseURL,
}

// LoadAndValidateConfig loads configuration and validates it. Flags in
// flags that were set explicitly take precedence over file and environment.
func LoadAndValidateConfig(configFile string, flags *pflag.FlagSet) (*config.Config, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore applies pending migrations and opens the database.
func OpenStore(ctx context.Context, logger *log.Logger, databaseURL string) (*storage.Store, error) {
	if err := storage.RunMigrations(databaseURL); err != nil {
		logger.ErrorContext(ctx, "Failed to apply migrations", log.FieldError, err)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	store, err := storage.Open(ctx, databaseURL, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open database", log.FieldError, err)
		return nil, err
	}
	return store, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-parent.Done():
			logger.Info("Parent context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
