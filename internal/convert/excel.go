package convert

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/local/pdftables/internal/extract"
)

const maxColumnWidth = 50

type excelWriter struct{}

func (excelWriter) merged(path string, s section) error {
	return writeWorkbook(path, "Merged Data", s.grid(), s.Header != nil)
}

func (excelWriter) table(path string, s section) error {
	return writeWorkbook(path, "Table Data", s.grid(), s.Header != nil)
}

func (excelWriter) text(path string, doc extract.TextDocument) error {
	return writeWorkbook(path, "Text", textRows(doc), true)
}

func writeWorkbook(path, sheet string, rows [][]string, boldHeader bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	widths := map[int]int{}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
			if n := utf8.RuneCountInString(v); n > widths[c] {
				widths[c] = n
			}
		}
	}
	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		width := w + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}
	if boldHeader && len(rows) > 0 && len(rows[0]) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
