package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes tabular report data as an Excel workbook.
type ExcelExporter struct {
	options ExcelOptions
}

// ExcelOptions configures Excel export behavior.
type ExcelOptions struct {
	SheetName       string
	FreezeHeader    bool
	TimestampFormat string
}

// DefaultExcelOptions returns the default Excel export options.
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:       "Report",
		FreezeHeader:    true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// NewExcelExporter creates an Excel exporter with the given options.
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	if options.SheetName == "" {
		options.SheetName = "Report"
	}
	return &ExcelExporter{options: options}
}

// Export renders the table into a workbook and writes it to w.
func (e *ExcelExporter) Export(w io.Writer, table Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.options.SheetName
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, column := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, column); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	for r, row := range table.Rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, e.cellValue(value)); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
		}
	}

	if e.options.FreezeHeader {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) cellValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(e.options.TimestampFormat)
	case uint64:
		// excelize stores uint64 fine, but keep amounts readable as numbers.
		return v
	default:
		return value
	}
}
