package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/iwvelando/backlog-forecast/internal/forecast"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetTable       = "Forecast"
	SheetChart       = "Chart"
	SheetQuarters    = "Quarters"
	SheetDepartments = "Departments"
	SheetManagers    = "Managers"
	SheetTrades      = "Trades"
)

// Workbook builds an xlsx workbook from a forecast: the contract table, the
// 36-month chart series, quarter totals and the group rollups. The trades
// sheet is only present for hour forecasts.
func Workbook(result forecast.Forecast) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetTable); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	summary := result.Summary

	table := [][]interface{}{}
	header := []interface{}{"Contract", "Name", "Department", "Manager", "Contour", "Auto", "Percent Complete", "Remaining Periods", "Ends"}
	for _, key := range summary.Keys {
		header = append(header, key)
	}
	header = append(header, "Total")
	table = append(table, header)
	for _, proj := range result.Projections {
		view := proj.Series.TableView()
		row := []interface{}{
			proj.ContractID, proj.Name, proj.Department, proj.ProjectManager,
			proj.Contour.String(), proj.IsAutoContour, proj.PercentComplete, proj.RemainingPeriods, proj.EstimatedEnd,
		}
		for _, key := range summary.Keys {
			row = append(row, view[key])
		}
		row = append(row, proj.Total)
		table = append(table, row)
	}
	totals := []interface{}{"Total", "", "", "", "", "", "", "", ""}
	for _, key := range summary.Keys {
		totals = append(totals, summary.Columns[key])
	}
	totals = append(totals, summary.GrandTotal)
	table = append(table, totals)
	if err := writeSheet(f, SheetTable, table, headerStyle); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetTable, "A", "A", 14)
	_ = f.SetColWidth(SheetTable, "B", "B", 30)

	chart := [][]interface{}{{"Month", "Amount"}}
	for _, bar := range summary.Chart {
		chart = append(chart, []interface{}{bar.Key, bar.Total})
	}
	if err := addSheet(f, SheetChart, chart, headerStyle); err != nil {
		return nil, err
	}

	quarters := [][]interface{}{{"Quarter", "Start", "End", "Amount"}}
	for _, q := range summary.Quarters {
		quarters = append(quarters, []interface{}{q.Label, q.Start, q.End, q.Total})
	}
	if err := addSheet(f, SheetQuarters, quarters, headerStyle); err != nil {
		return nil, err
	}

	if err := addSheet(f, SheetDepartments, groupRows("Department", summary.Keys, summary.Departments), headerStyle); err != nil {
		return nil, err
	}
	if err := addSheet(f, SheetManagers, groupRows("Manager", summary.Keys, summary.Managers), headerStyle); err != nil {
		return nil, err
	}

	if len(summary.Trades) > 0 {
		trades := make([]string, 0, len(summary.Trades))
		for trade := range summary.Trades {
			trades = append(trades, trade)
		}
		sort.Strings(trades)

		rows := [][]interface{}{}
		tradeHeader := []interface{}{"Trade"}
		for _, key := range summary.Keys {
			tradeHeader = append(tradeHeader, key)
		}
		tradeHeader = append(tradeHeader, "Total")
		rows = append(rows, tradeHeader)
		for _, trade := range trades {
			row := []interface{}{trade}
			for _, key := range summary.Keys {
				row = append(row, summary.Trades[trade][key])
			}
			row = append(row, summary.TradeTotals[trade])
			rows = append(rows, row)
		}
		if err := addSheet(f, SheetTrades, rows, headerStyle); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// WriteWorkbook writes the forecast workbook to w.
func WriteWorkbook(w io.Writer, result forecast.Forecast) error {
	f, err := Workbook(result)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the forecast workbook to path.
func SaveWorkbook(path string, result forecast.Forecast) error {
	f, err := Workbook(result)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func groupRows(title string, keys []string, groups []forecast.GroupTotal) [][]interface{} {
	header := []interface{}{title, "Contracts"}
	for _, key := range keys {
		header = append(header, key)
	}
	header = append(header, "Total")

	rows := [][]interface{}{header}
	for _, g := range groups {
		row := []interface{}{g.Name, g.Contracts}
		for _, key := range keys {
			row = append(row, g.Periods[key])
		}
		row = append(row, g.Total)
		rows = append(rows, row)
	}
	return rows
}

func addSheet(f *excelize.File, name string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeSheet(f, name, rows, headerStyle)
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, val); err != nil {
				return err
			}
		}
	}
	return f.SetRowStyle(name, 1, 1, headerStyle)
}
