package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fumble-backend/internal/shared/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Manage the quota database schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer sqlDB.Close()

		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		switch direction {
		case "down":
			return db.RollbackMigration(ctx, sqlDB)
		case "status":
			return db.MigrationStatus(ctx, sqlDB)
		default:
			return db.RunMigrations(ctx, sqlDB)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
