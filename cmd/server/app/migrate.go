package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/prudhvinik1/dbsync/internal/database"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for managing the sync_rows schema. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, 1)
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert applied database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, -1)
		},
	})

	return migrateCmd
}

// runMigrate moves the schema in the given direction (1 up, -1 down).
func runMigrate(cmd *cobra.Command, direction int) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	steps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	slog.Info("Applying database migrations", "driver", cfg.DatabaseDriver, "direction", direction, "steps", steps)

	switch {
	case steps > 0:
		err = database.MigrateSteps(cfg.DatabaseDriver, cfg.DatabaseURL, direction*int(steps))
	case direction > 0:
		err = database.MigrateUp(cfg.DatabaseDriver, cfg.DatabaseURL)
	default:
		err = database.MigrateDown(cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
