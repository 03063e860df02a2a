package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pitchradar/radar-cli/internal/export"
	"github.com/pitchradar/radar-cli/internal/store"
	notionpkg "github.com/pitchradar/radar-cli/pkg/notion"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [source]",
	Short: "Export a stored collection to CSV, XLSX, or Notion",
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
		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No opportunities to export.")
			return nil
		}

		switch exportFormat {
		case "csv", "xlsx":
			out := os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return eris.Wrap(err, "create output file")
				}
				defer f.Close() //nolint:errcheck
				out = f
			}
			if exportFormat == "csv" {
				err = export.WriteCSV(out, items)
			} else {
				if exportOut == "" {
					return eris.New("xlsx export requires --out")
				}
				err = export.WriteXLSX(out, items)
			}
			if err != nil {
				return err
			}
		case "notion":
			if cfg.Notion.Token == "" {
				return eris.New("notion token is required (RADAR_NOTION_TOKEN)")
			}
			client := notionpkg.NewClient(cfg.Notion.Token,
				notionpkg.WithRateLimit(float64(cfg.Notion.RatePerSec)))
			created, err := export.ExportNotion(ctx, client, cfg.Notion.DatabaseID, items)
			if err != nil {
				return err
			}
			fmt.Printf("Created %d Notion pages\n", created)
		default:
			return eris.Errorf("unsupported format: %s", exportFormat)
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv, xlsx, or notion")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout for csv)")
	rootCmd.AddCommand(exportCmd)
}
