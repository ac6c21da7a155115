package cmd

import (
	"context"
	"fmt"

	settingsInfra "github.com/AzielCF/az-prospect/core/settings/infrastructure"
	"github.com/AzielCF/az-prospect/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the routing tables",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := migrateSchemas(cmd.Context(), deps.DB); err != nil {
			logrus.Fatalf("[MIGRATION] %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// migrateSchemas creates provider_usage and global_settings. It is safe to run repeatedly.
func migrateSchemas(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logrus.Info("[MIGRATION] Checking routing tables...")

	if err := repository.NewGormUsageStore(db).InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to migrate provider usage: %w", err)
	}
	if err := settingsInfra.NewGlobalSettingsGormRepository(db).InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to migrate global settings: %w", err)
	}

	logrus.Info("[MIGRATION] Routing tables are up to date.")
	return nil
}
