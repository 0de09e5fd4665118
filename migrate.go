package main

import (
	"errors"

	"art-marketplace/internal/config"
	"art-marketplace/internal/repository"
	"art-marketplace/utils"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL schema, indexes and bid notification trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Store.Driver != config.StorePostgres {
			return errors.New("migrate requires store.driver postgres")
		}

		db, err := repository.Open(ctx, cfg.Store)
		if err != nil {
			utils.Error("Failed to connect to database", map[string]any{"error": err.Error()})
			return err
		}
		defer db.Close()

		if err := repository.Migrate(ctx, db); err != nil {
			utils.Error("Migration failed", map[string]any{"error": err.Error()})
			return err
		}

		utils.Info("Migration completed successfully", nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
