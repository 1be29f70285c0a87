package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

func seedCmd() *cobra.Command {
	var (
		month      string
		reset      bool
		withSample bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the reference accounts, categories and budgets",
		Long: `Upsert the reference accounts, categories and the month's budgets. Running
it twice changes nothing. --with-sample-transactions also adds a sample
month of transactions when the ledger is empty; --reset wipes every table
first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := core.CurrentMonth(time.Now())
			if month != "" {
				parsed, err := core.ParseMonth(month)
				if err != nil {
					return err
				}
				m = parsed
			}

			ctx := cmd.Context()
			store, err := cli.OpenStore(ctx, logger, appConfig.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()

			app := services.NewApp(store, services.WithLogger(logger))
			report, err := app.Seed.Run(ctx, services.SeedOptions{
				Month:                  m,
				Reset:                  reset,
				WithSampleTransactions: withSample,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "budget month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all data before seeding")
	cmd.Flags().BoolVar(&withSample, "with-sample-transactions", false, "add sample transactions to an empty ledger")
	return cmd
}
