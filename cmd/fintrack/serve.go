package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/services"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Apply pending migrations and serve the REST API on PORT. Domain events
are published to AMQP_URL when it is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), appConfig, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, err := cli.OpenStore(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var publisher ports.EventPublisher = services.NoopPublisher{}
	var broker *amqp.Client
	if cfg.AMQPURL != "" {
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			_ = store.Close()
			return err
		}
		publisher = broker
	}

	app := services.NewApp(store, services.WithPublisher(publisher), services.WithLogger(logger))
	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               ":" + cfg.Port,
		APIKeyEnabled:      cfg.APIKeyEnabled,
		APIKey:             cfg.APIKey,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, app, store, logger)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	ctx, done := cli.GracefulShutdown(runCtx, logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Database close error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack API",
		"port", cfg.Port,
		"api_key_enabled", cfg.APIKeyEnabled,
		"events", cfg.AMQPURL != "")

	// A listener failure tears everything down through the same path as a
	// signal.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			errCh <- err
			stop()
		}
	}()

	cli.WaitForShutdown(ctx, done)
	select {
	case err := <-errCh:
		return err
	default:
	}
	logger.Info("Server stopped gracefully")
	return nil
}
