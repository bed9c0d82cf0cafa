package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const excelSheet = "Omzet"

// ExcelExporter writes tables as XLSX workbooks with a frozen header row.
type ExcelExporter struct{}

// NewExcelExporter returns an ExcelExporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Export writes t as a single-sheet workbook.
func (e *ExcelExporter) Export(t *Table, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	if t.Title != "" {
		if err := f.SetCellValue(excelSheet, "A1", t.Title); err != nil {
			return err
		}
		titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
		if err != nil {
			return fmt.Errorf("title style: %w", err)
		}
		if err := f.SetCellStyle(excelSheet, "A1", "A1", titleStyle); err != nil {
			return fmt.Errorf("style title: %w", err)
		}
		row++
		if t.Subtitle != "" {
			if err := f.SetCellValue(excelSheet, "A2", t.Subtitle); err != nil {
				return err
			}
			row++
		}
		row++
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	headerRow := row
	for i, h := range t.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(excelSheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(excelSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}
	row++

	for _, r := range t.Rows {
		for i, v := range r {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(excelSheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	if len(t.Header) > 0 {
		if err := f.SetPanes(excelSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      headerRow,
			TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *ExcelExporter) Extension() string {
	return ".xlsx"
}
