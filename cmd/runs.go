package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingest runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		outcomes, err := st.ListOutcomes(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(outcomes) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSOURCE\tADDED\tTOTAL\tDROPPED\tFAILED\tSTARTED\tDURATION")
		for _, o := range outcomes {
			runID := o.RunID
			if len(runID) > 8 {
				runID = runID[:8]
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%dms\n",
				runID, o.Source, o.Added, o.Total, o.Dropped, o.Failed,
				o.StartedAt.Format(time.RFC3339), o.Duration)
		}
		w.Flush()
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}
