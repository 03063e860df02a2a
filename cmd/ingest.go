package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pitchradar/radar-cli/internal/ingest"
	"github.com/pitchradar/radar-cli/internal/model"
)

var ingestAll bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Fetch a source feed and merge it into the stored collections",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !ingestAll && len(args) == 0 {
			return eris.New("pass a source name or --all")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		feeds := cfg.Sources.Feeds
		if !ingestAll {
			feed, ok := feedByName(args[0])
			if !ok {
				return eris.Errorf("source %q is not configured", args[0])
			}
			feeds = []ingest.Source{feed}
		}
		if len(feeds) == 0 {
			return eris.New("no sources configured")
		}

		// One goroutine per feed; failures on one feed do not stop the rest.
		outcomes := make([]*model.BatchOutcome, len(feeds))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(cfg.Ingest.MaxConcurrent, 1))
		for i, feed := range feeds {
			g.Go(func() error {
				records, err := env.Ingestor.Fetch(gctx, feed)
				if err != nil {
					zap.L().Error("ingest failed", zap.String("source", feed.Name), zap.Error(err))
					return nil
				}
				outcome, err := env.Pipeline.Run(gctx, feed.Name, records)
				if err != nil {
					zap.L().Error("pipeline failed", zap.String("source", feed.Name), zap.Error(err))
					return nil
				}
				outcomes[i] = outcome
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		formatOutcomes(outcomes)
		return nil
	},
}

func formatOutcomes(outcomes []*model.BatchOutcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tADDED\tTOTAL\tDROPPED\tFAILED\tDURATION")
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%dms\n",
			o.Source, o.Added, o.Total, o.Dropped, o.Failed, o.Duration)
	}
	w.Flush()
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAll, "all", false, "ingest every configured source")
	rootCmd.AddCommand(ingestCmd)
}
