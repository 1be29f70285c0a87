package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Export monthly summaries to the configured backend",
		Long: `Consume domain events from AMQP_URL (when set) and rewrite the summary of
every touched month in EXPORT_BACKEND. EXPORT_SCHEDULE also exports the
previous month.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
	cfg := appConfig
	logger := logger.WithComponent(log.ComponentWorker)

	store, err := cli.OpenStore(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	exportBackend, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if exportBackend.Cleanup != nil {
			if err := exportBackend.Cleanup(); err != nil {
				logger.Error("Export backend cleanup error", log.FieldError, err)
			}
		}
	}()

	app := services.NewApp(store, services.WithLogger(logger))
	processor := services.NewExportProcessor(app.Reports, exportBackend.Store, services.DefaultExportProcessorConfig(), logger)

	var events worker.EventSource
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		events = client
	} else {
		logger.Warn("AMQP_URL not set; only the scheduled export will run")
	}

	w := worker.New(events, processor, worker.Config{Schedule: cfg.ExportSchedule}, logger)

	ctx, done := cli.GracefulShutdown(ctx, logger, cfg.ShutdownTimeout, nil)
	err = w.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker failed", log.FieldError, err)
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
