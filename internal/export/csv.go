package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/pitchradar/radar-cli/internal/model"
)

// WriteCSV writes the collection as CSV with a header row.
func WriteCSV(w io.Writer, items []model.Opportunity) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, item := range items {
		if err := cw.Write(rowFor(item)); err != nil {
			return eris.Wrapf(err, "export: write csv row %q", item.Title)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
