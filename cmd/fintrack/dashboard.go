package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
)

const apiPingTimeout = 5 * time.Second

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only HTML dashboard",
		Long: `Serve the dashboard on DASHBOARD_PORT. Pages are built from the API at
FIN_API_BASE_URL, authenticated with FIN_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context())
		},
	}
}

func runDashboard(ctx context.Context) error {
	cfg := appConfig
	logger := logger.WithComponent(log.ComponentDashboard)

	client := dashboard.NewClient(cfg.APIBaseURL, cfg.DashboardAPIKey, nil)
	srv, err := dashboard.NewServer(dashboard.Config{
		Addr:     ":" + cfg.DashboardPort,
		CacheTTL: cfg.DashboardCacheTTL,
	}, client, logger)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, apiPingTimeout)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("API not reachable yet", "api_base_url", cfg.APIBaseURL, log.FieldError, err)
	}
	cancel()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	ctx, done := cli.GracefulShutdown(runCtx, logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Dashboard shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack dashboard", "port", cfg.DashboardPort, "api_base_url", cfg.APIBaseURL)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dashboard server error", log.FieldError, err)
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
	logger.Info("Dashboard stopped gracefully")
	return nil
}
