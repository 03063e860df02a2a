package ingest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pitchradar/radar-cli/internal/model"
)

// Wrapper keys checked, in order, when a JSON feed is an object rather than
// a bare array.
var jsonWrapperKeys = []string{"opportunities", "items", "results", "data"}

// DecodeJSONRecords reads a JSON feed and returns its records. The feed may be
// a bare array of objects or an object wrapping the array under a well-known
// key ("opportunities", "items", "results", "data").
func DecodeJSONRecords(r io.Reader) ([]model.RawRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "json: read feed")
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []model.RawRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, eris.Wrap(err, "json: decode array")
		}
		return records, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	for _, key := range jsonWrapperKeys {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		var records []model.RawRecord
		if err := json.Unmarshal(inner, &records); err != nil {
			return nil, eris.Wrapf(err, "json: decode %q array", key)
		}
		return records, nil
	}

	return nil, eris.New("json: no recognized record array in feed")
}

// DecodeCSVRecords reads a CSV feed with a header row and maps each data row
// to a record keyed by the header columns. Short rows leave trailing columns
// unset rather than failing the whole feed.
func DecodeCSVRecords(r io.Reader) ([]model.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var records []model.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		rec := make(model.RawRecord, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			rec[col] = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}

	return records, nil
}
