// Package audit exports the booking chain audit log as XLSX workbooks.
package audit

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter builds a workbook sheet by sheet.
type ExcelWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{file: excelize.NewFile()}
}

// AddSheet adds a sheet and makes it current. The first call renames the default sheet.
func (w *ExcelWriter) AddSheet(name string) error {
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers and freezes them.
func (w *ExcelWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	if len(columns) > 0 {
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		startCell, err := excelize.CoordinatesToCellName(1, w.currentRow)
		if err != nil {
			return err
		}
		endCell, err := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellStyle(w.currentSheet, startCell, endCell, style); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}
	if err := w.file.SetPanes(w.currentSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row. Times are written in RFC 3339 so they survive any locale.
func (w *ExcelWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if t, ok := val.(time.Time); ok {
			val = t.UTC().Format(time.RFC3339)
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook.
func (w *ExcelWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *ExcelWriter) Close() error {
	return w.file.Close()
}
