package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"swimslot/internal/app"
	"swimslot/internal/config"
	"swimslot/internal/db"
	"swimslot/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logger.Info("Starting SwimSlot", "port", cfg.Port, "db_driver", cfg.DBDriver)

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer closeCancel()
				if err := a.Close(closeCtx); err != nil {
					logger.Error("Error releasing resources", "error", err)
				}
			}()

			if !skipMigrations {
				if err := db.RunMigrations(a.Store.DB()); err != nil {
					return err
				}
				logger.Info("Migrations completed")
			}

			if a.Email != nil {
				go a.Email.Start(ctx)
			}

			serverErrChan := make(chan error, 1)
			go func() {
				logger.Infof("Server starting on port %s", cfg.Port)
				if err := a.Server.Start(); err != nil {
					serverErrChan <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			var runErr error
			select {
			case sig := <-sigChan:
				logger.Infof("Received signal: %v", sig)
			case runErr = <-serverErrChan:
				logger.Errorf("Server error: %v", runErr)
			}

			logger.Info("Shutting down gracefully...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()

			cancel()

			if err := a.Server.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("Error during server shutdown: %v", err)
			}

			logger.Info("Server stopped")
			return runErr
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}
