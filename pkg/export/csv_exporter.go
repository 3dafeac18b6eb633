package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// FlagHeader titles the extra CSV column written for datasets that carry flags.
const FlagHeader = "Below Threshold"

// Dataset is an ordered table. Flagged marks rows that should stand out, e.g.
// courses whose attendance is below the collection threshold.
type Dataset struct {
	Headers []string
	Rows    [][]string
	Flagged []bool
}

func (d Dataset) flagged(i int) bool {
	return i < len(d.Flagged) && d.Flagged[i]
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Headers) {
			return fmt.Errorf("row %d has %d cells for %d headers", i+1, len(row), len(d.Headers))
		}
	}
	return nil
}

// CSVExporter writes a Dataset as RFC 4180 CSV. A dataset with flags gets a
// trailing yes/no column since CSV has no styling.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset. Short rows are padded with empty cells.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	withFlag := data.Flagged != nil
	width := len(data.Headers)
	headers := data.Headers
	if withFlag {
		headers = append(append([]string{}, data.Headers...), FlagHeader)
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range data.Rows {
		record := make([]string, len(headers))
		copy(record, row)
		if withFlag {
			record[width] = "no"
			if data.flagged(i) {
				record[width] = "yes"
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
