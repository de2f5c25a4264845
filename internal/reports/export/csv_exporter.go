package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVExporter writes tabular report data as CSV.
type CSVExporter struct {
	writer  *csv.Writer
	options CSVOptions
}

// CSVOptions configures CSV export behavior.
type CSVOptions struct {
	Delimiter       rune
	IncludeHeader   bool
	TimestampFormat string
}

// DefaultCSVOptions returns the default CSV export options.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		IncludeHeader:   true,
		TimestampFormat: time.RFC3339,
	}
}

// NewCSVExporter creates a CSV exporter writing to w.
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	return &CSVExporter{writer: writer, options: options}
}

// Export writes the full table and flushes.
func (e *CSVExporter) Export(table Table) error {
	if e.options.IncludeHeader {
		if err := e.writer.Write(table.Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range table.Rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = e.formatValue(value)
		}
		if err := e.writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case uint64:
		return strconv.FormatUint(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(e.options.TimestampFormat)
	default:
		return fmt.Sprint(v)
	}
}
