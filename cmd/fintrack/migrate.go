package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/storage"
)

func migrateCmd() *cobra.Command {
	var (
		down   int
		status bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Long: `Apply every pending migration. With --down N the last N migrations are
reverted; --status prints the current schema version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := appConfig.DatabaseURL
			out := cmd.OutOrStdout()

			switch {
			case status:
			case down > 0:
				if err := storage.RollbackMigrations(url, down); err != nil {
					return err
				}
				logger.Info("Migrations rolled back", "steps", down)
			default:
				if err := storage.RunMigrations(url); err != nil {
					return err
				}
				logger.Info("Migrations applied")
			}

			st, err := storage.Status(url)
			if err != nil {
				return err
			}
			switch {
			case !st.Applied:
				fmt.Fprintln(out, "schema: no migrations applied")
			case st.Dirty:
				fmt.Fprintf(out, "schema: version %d (dirty)\n", st.Version)
			default:
				fmt.Fprintf(out, "schema: version %d\n", st.Version)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations")
	cmd.Flags().BoolVar(&status, "status", false, "only print the schema version")
	return cmd
}
