package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"evadoption/internal/frame"
)

// Sheet names used in the workbook.
const (
	SheetCombined = "combined"
	SheetMissing  = "missing_values"
)

// WriteXLSX writes f to the "combined" sheet and a per-column missing-value
// table to "missing_values". before holds the counts taken ahead of
// cleaning; it may be nil.
func WriteXLSX(path string, f *frame.Frame, before []frame.ColumnNulls) error {
	wb := excelize.NewFile()
	defer wb.Close()

	// A new workbook starts with Sheet1; it becomes the data sheet.
	if err := wb.SetSheetName("Sheet1", SheetCombined); err != nil {
		return fmt.Errorf("export: xlsx: %w", err)
	}
	if err := writeSheetTable(wb, SheetCombined, f.Names(), f.Rows()); err != nil {
		return err
	}

	if _, err := wb.NewSheet(SheetMissing); err != nil {
		return fmt.Errorf("export: xlsx: %w", err)
	}
	if err := writeSheetTable(wb, SheetMissing, []string{"Column", "Missing before clean", "Missing after clean"},
		missingRows(f, before)); err != nil {
		return err
	}

	return writeAtomic(path, func(w io.Writer) error {
		if _, err := wb.WriteTo(w); err != nil {
			return fmt.Errorf("export: xlsx write: %w", err)
		}
		return nil
	})
}

// missingRows pairs the per-column counts from before and after cleaning
// by column name. A column renamed by cleaning has no before count under
// its new name, so its before cell stays empty.
func missingRows(f *frame.Frame, before []frame.ColumnNulls) [][]any {
	prior := make(map[string]int, len(before))
	for _, c := range before {
		prior[c.Column] = c.Nulls
	}
	after := f.NullCounts()
	rows := make([][]any, len(after))
	for i, c := range after {
		var b any
		if n, ok := prior[c.Column]; ok {
			b = n
		}
		rows[i] = []any{c.Column, b, c.Nulls}
	}
	return rows
}

// writeSheetTable writes header at row 1 and rows below it. Nil cells stay
// blank.
func writeSheetTable(wb *excelize.File, sheet string, header []string, rows [][]any) error {
	for j, h := range header {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fmt.Errorf("export: xlsx: %w", err)
		}
		if err := wb.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("export: xlsx %s!%s: %w", sheet, cell, err)
		}
	}
	for i, r := range rows {
		for j, v := range r {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("export: xlsx: %w", err)
			}
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("export: xlsx %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
