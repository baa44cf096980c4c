package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kudibooks/kudibooks/internal/platform/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				pool, err := db.New(cmd.Context(), cfg.PGDSN, 0)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := db.Migrate(cmd.Context(), pool, logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which migrations are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				pool, err := db.New(cmd.Context(), cfg.PGDSN, 0)
				if err != nil {
					return err
				}
				defer pool.Close()
				return db.MigrationStatus(cmd.Context(), pool)
			},
		},
	)
	return cmd
}
