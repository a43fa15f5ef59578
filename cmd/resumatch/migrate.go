package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/db/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the corpus schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		dir, name := postgres.Up, "up"
		if len(args) == 1 && args[0] == "down" {
			dir, name = postgres.Down, "down"
		}

		version, err := postgres.Migrate(cfg.Database.DSN, cfg.Embedding.Dimensions, dir)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		logger.Info("Migration complete",
			zap.String("direction", name),
			zap.Uint("version", version),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
