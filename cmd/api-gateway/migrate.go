package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	"github.com/noah-isme/sims-enrollment-api/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	var status, down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status && down {
				return fmt.Errorf("--status and --down are mutually exclusive")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			switch {
			case status:
				states, err := database.MigrationStatus(cmd.Context(), db)
				if err != nil {
					return err
				}
				printMigrationStatus(out, states)
				return nil
			case down:
				version, err := database.Rollback(cmd.Context(), db)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "rolled back %s\n", version)
				return nil
			}

			applied, err := database.Migrate(cmd.Context(), db)
			for _, v := range applied {
				fmt.Fprintf(out, "applied %s\n", v)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list migrations and whether they are applied")
	cmd.Flags().BoolVar(&down, "down", false, "roll back the latest applied migration")
	return cmd
}

func printMigrationStatus(w io.Writer, states []database.MigrationState) {
	for _, st := range states {
		if st.Applied {
			fmt.Fprintf(w, "%-28s applied %s\n", st.Version, st.AppliedAt.Format("2006-01-02 15:04:05"))
			continue
		}
		fmt.Fprintf(w, "%-28s pending\n", st.Version)
	}
}
