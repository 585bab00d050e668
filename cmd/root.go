package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "opendata-cli",
	Short: "Open-data catalog analysis pipeline",
	Long:  "Searches a CKAN open-data catalog, downloads tabular resources, detects coordinate columns, and renders incident maps with tabular exports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
