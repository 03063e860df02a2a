package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/pitchradar/radar-cli/internal/model"
)

// WriteXLSX writes the collection as a single-sheet XLSX workbook.
func WriteXLSX(w io.Writer, items []model.Opportunity) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Opportunities")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().Value = col
	}

	for _, item := range items {
		row := sheet.AddRow()
		for _, val := range rowFor(item) {
			row.AddCell().Value = val
		}
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}
