package cmd

import (
	"fmt"
	"log/slog"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "helpdesk-service",
	Short:        "Helpdesk chat bot: ticket intake, resolution, ratings (PSDS)",
	RunE:         runServe,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(replayEventsCmd)
}

// loadConfig читает .env и окружение и настраивает логирование.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	return cfg, logger, nil
}
