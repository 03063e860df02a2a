package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pitchradar/radar-cli/internal/analysis"
	"github.com/pitchradar/radar-cli/internal/store"
	anthropicpkg "github.com/pitchradar/radar-cli/pkg/anthropic"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [source]",
	Short: "Score stored opportunities that have no analysis yet",
	Long:  "Runs Claude relevance scoring over a stored collection. Without a source argument the aggregate collection is scored.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is required (RADAR_ANTHROPIC_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		key := store.AggregateKey
		if len(args) == 1 {
			key = store.SourceKey(args[0])
		}

		items, err := st.GetCollection(ctx, key)
		if err != nil {
			return eris.Wrap(err, "load collection")
		}
		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to analyze.")
			return nil
		}

		cache := analysis.NewCache(
			analysis.WithMaxSize(cfg.Cache.MaxSize),
			analysis.WithSimilarityThreshold(cfg.Cache.SimilarityThreshold),
		)
		analyzer := analysis.NewAnalyzer(anthropicpkg.NewClient(cfg.Anthropic.Key), cache, cfg.Anthropic.Model)

		failed := analyzer.AnalyzeBatch(ctx, items)

		if err := st.SetCollection(ctx, key, items); err != nil {
			return eris.Wrap(err, "save collection")
		}

		scored := 0
		for i := range items {
			if items[i].Analysis != nil {
				scored++
			}
		}
		fmt.Printf("Scored %d of %d opportunities (%d failed)\n", scored, len(items), failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
