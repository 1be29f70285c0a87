// Command fintrack runs the personal finance API and its companions: the
// export worker, the dashboard and the database maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

var (
	cfgFile string
	version = "dev"

	// Set by loadConfig before any subcommand runs.
	appConfig *config.Config
	logger    *log.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance API",
		Long: `fintrack keeps accounts, categories, transactions, transfers and monthly
budgets, and reports planned versus realized spending per month.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fintrack.yaml when present)")
	root.PersistentFlags().String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().String("log-format", "", "log format (json, text)")
	root.PersistentFlags().String("database-url", "", "database URL (sqlite:///path or postgres://...)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(workerCmd())
	root.AddCommand(dashboardCmd())
	return root
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// Long-running commands install their own shutdown handling; this
	// covers the short ones.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	appConfig = cfg
	logger = cli.SetupLogger(cfg).WithComponent(log.ComponentCLI)
	return nil
}
