package export

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string
	FreezeHeader bool
	AutoFilter   bool
	DateFormat   string
	HeaderFill   string
	HeaderFont   string
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Report",
		FreezeHeader: true,
		AutoFilter:   true,
		DateFormat:   "yyyy-mm-dd",
		HeaderFill:   "1F3864",
		HeaderFont:   "FFFFFF",
	}
}

// ExcelExporter writes tables as a single-sheet workbook.
type ExcelExporter struct {
	options ExcelOptions
}

func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	return &ExcelExporter{options: options}
}

func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *ExcelExporter) Extension() string { return "xlsx" }

func (e *ExcelExporter) Export(w io.Writer, table *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.options.SheetName
	if table.Name != "" {
		sheet = table.Name
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: e.options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{e.options.HeaderFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &e.options.DateFormat})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	widths := make([]int, len(table.Columns))
	for i, col := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.Label); err != nil {
			return err
		}
		widths[i] = utf8.RuneCountInString(col.Label)
	}
	last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range table.Rows {
		for i, col := range table.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			val := row[col.Key]
			if t, ok := val.(time.Time); ok {
				if t.IsZero() {
					continue
				}
				if err := f.SetCellValue(sheet, cell, t); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
					return err
				}
				widths[i] = max(widths[i], 10)
				continue
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(formatValue(val, "2006-01-02")))
		}
	}

	for i, col := range table.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := col.Width
		if width == 0 {
			width = float64(min(widths[i], 60) + 2)
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}

	if e.options.FreezeHeader {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}
	if e.options.AutoFilter && len(table.Rows) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(table.Columns), len(table.Rows)+1)
		if err := f.AutoFilter(sheet, "A1:"+end, nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
