package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"evadoption/internal/frame"
)

// FileSummary is the workbook written next to the charts.
const FileSummary = "summary.xlsx"

// writeSummary saves the aggregate tables behind the charts as a workbook
// with one sheet per table, so the numbers can be read without the images.
func writeSummary(path string, s Summary) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{"avg_bev_shares", []string{"Region", "Average BEV Shares", "Rows"}, groupRows(s.AvgBEVShares)},
		{"total_evs_sold", []string{"Region", "Total EVs Sold", "Rows"}, groupRows(s.TotalEVsSold)},
		{"ev_stock_shares", []string{"Region", "EV Stocks", "Share (%)"}, shareRows(s.StockShares)},
	}
	for i, sh := range sheets {
		// A new workbook starts with Sheet1; reuse it for the first table.
		if i == 0 {
			if err := wb.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("report: summary: %w", err)
			}
		} else if _, err := wb.NewSheet(sh.name); err != nil {
			return fmt.Errorf("report: summary: %w", err)
		}
		if err := fillSheet(wb, sh.name, sh.header, sh.rows); err != nil {
			return err
		}
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// fillSheet writes a header row and the rows below it starting at
// A1, and widens the used columns.
func fillSheet(wb *excelize.File, sheet string, header []string, rows [][]any) error {
	for j, h := range header {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := wb.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report: %s!%s: %w", sheet, cell, err)
		}
		if err := wb.SetColWidth(sheet, columnName(j), columnName(j), 22); err != nil {
			return fmt.Errorf("report: %s: %w", sheet, err)
		}
	}
	for i, r := range rows {
		for j, v := range r {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("report: %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// columnName turns a zero-based column index into its letter name.
func columnName(j int) string {
	name, _ := excelize.ColumnNumberToName(j + 1)
	return name
}

// groupRows flattens aggregate groups to Region, value, row count.
func groupRows(groups []frame.Group) [][]any {
	rows := make([][]any, len(groups))
	for i, g := range groups {
		rows[i] = []any{g.Key, g.Value, g.Count}
	}
	return rows
}

// shareRows flattens stock shares to Region, stocks, percent.
func shareRows(shares []Share) [][]any {
	rows := make([][]any, len(shares))
	for i, s := range shares {
		rows[i] = []any{s.Region, s.Stocks, s.Percent}
	}
	return rows
}
