package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizrank/review-service/config"
	"github.com/bizrank/review-service/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Apply database migrations",
	Annotations: map[string]string{"standalone": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config required for migrate command but not loaded")
		}
		dbURL := config.GetDatabaseURL()
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
		ctx := cmd.Context()
		if err := database.Connect(ctx, dbURL, cfg.Database.PoolOptions()); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx, database.Pool()); err != nil {
			return err
		}
		logger.Info().Msg("Migrations applied")
		return nil
	},
}
