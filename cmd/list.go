package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/store"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list [source]",
	Short: "List stored opportunities",
	Long:  "Prints a stored collection. Without a source argument the aggregate collection is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

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

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No opportunities stored.")
			return nil
		}

		formatOpportunities(os.Stdout, items)
		return nil
	},
}

func formatOpportunities(out io.Writer, items []model.Opportunity) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tSOURCE\tCATEGORY\tDEADLINE\tPRIORITY\tSCORE")
	for _, item := range items {
		title := truncateTitle(item.Title, 60)
		priority, score := "-", "-"
		if item.Analysis != nil {
			priority = string(item.Analysis.Priority)
			score = fmt.Sprintf("%.1f", item.Analysis.RelevanceScore)
		}
		deadline := item.Deadline
		if deadline == "" {
			deadline = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			title, item.Source, item.Category, deadline, priority, score)
	}
	w.Flush()
}

// truncateTitle shortens a title to max runes, not bytes, since scraped
// titles can carry multi-byte characters.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-3]) + "..."
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
