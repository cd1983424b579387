package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"swimslot/internal/config"

	"swimslot/internal/db"
	"swimslot/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, func(conn *sqlx.DB) error {
					if err := db.RunMigrations(conn); err != nil {
						return err
					}
					logger.Info("Migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, func(conn *sqlx.DB) error {
					if err := db.RollbackMigrations(conn); err != nil {
						return err
					}
					logger.Info("Migrations rolled back")
					return nil
				})
			},
		},
	)

	return cmd
}

func withDatabase(cmd *cobra.Command, fn func(conn *sqlx.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	conn, err := db.Connect(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}
