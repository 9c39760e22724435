package cmd

import (
	"fmt"
	"log"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DB.Driver == config.DriverSQLite {
		db, err := database.Open(cfg.DB.Driver, cfg.DSN())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Println("migrate up (sqlite automigrate): ok")
		return nil
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("migrate up: ok")
	return nil
}
