package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter     rune
	UseCRLF       bool
	IncludeHeader bool
	DateFormat    string
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		IncludeHeader: true,
		DateFormat:    "2006-01-02",
	}
}

// CSVExporter writes tables as CSV.
type CSVExporter struct {
	options CSVOptions
}

func NewCSVExporter(options CSVOptions) *CSVExporter {
	return &CSVExporter{options: options}
}

func (e *CSVExporter) ContentType() string { return "text/csv" }
func (e *CSVExporter) Extension() string   { return "csv" }

func (e *CSVExporter) Export(w io.Writer, table *Table) error {
	writer := csv.NewWriter(w)
	writer.Comma = e.options.Delimiter
	writer.UseCRLF = e.options.UseCRLF

	if e.options.IncludeHeader {
		if err := writer.Write(table.Labels()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = formatValue(row[col.Key], e.options.DateFormat)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
