package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "radar-cli",
	Short: "Media opportunity ingestion pipeline",
	Long:  "Pulls journalist request feeds (SourceBottle, Qwoted, Featured), normalizes and deduplicates them, scores relevance via Claude, and serves the merged collections.",
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
