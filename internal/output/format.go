// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/backlog-forecast/internal/forecast"
	"github.com/iwvelando/backlog-forecast/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable report:
// the period table, the quarter cards and the department and manager rollups.
func PrettyFormat(w io.Writer, result forecast.Forecast) {
	p := message.NewPrinter(language.English)
	summary := result.Summary

	fmt.Fprintf(w, "--- Backlog forecast (%s) as of %s ---\n", summary.Measure, summary.AsOf)
	fmt.Fprintf(w, "Contracts: %d | Total: %s\n\n", summary.ContractCount, format.Quantity(summary.Measure, summary.GrandTotal))

	fmt.Fprintf(w, "Period  | Amount\n")
	fmt.Fprintf(w, "______  | ______\n")
	for _, key := range summary.Keys {
		_, _ = p.Fprintf(w, "%-7s | %s\n", key, format.Quantity(summary.Measure, summary.Columns[key]))
	}

	if len(summary.Quarters) > 0 {
		fmt.Fprintf(w, "\nQuarter | Months          | Amount\n")
		fmt.Fprintf(w, "_______ | ______          | ______\n")
		for _, q := range summary.Quarters {
			_, _ = p.Fprintf(w, "%-7s | %s..%s | %s\n", q.Label, q.Start, q.End, format.Quantity(summary.Measure, q.Total))
		}
	}

	writeGroups(w, p, "Department", summary.Measure, summary.Departments)
	writeGroups(w, p, "Manager", summary.Measure, summary.Managers)

	if len(summary.TradeTotals) > 0 {
		fmt.Fprintf(w, "\nTrade | Hours\n")
		fmt.Fprintf(w, "_____ | _____\n")
		for _, trade := range sortedKeys(summary.TradeTotals) {
			_, _ = p.Fprintf(w, "%s | %s\n", trade, format.Quantity(summary.Measure, summary.TradeTotals[trade]))
		}
	}

	if len(result.Projections) > 0 {
		fmt.Fprintf(w, "\nContract | Complete | Months | Contour | Ends | Remaining\n")
		fmt.Fprintf(w, "________ | ________ | ______ | _______ | ____ | _________\n")
		for _, proj := range result.Projections {
			contourLabel := proj.Contour.String()
			if proj.IsAutoContour {
				contourLabel += " (auto)"
			}
			_, _ = p.Fprintf(w, "%s | %s | %d | %s | %s | %s\n",
				proj.ContractID, format.Percent(proj.PercentComplete), proj.RemainingPeriods,
				contourLabel, proj.EstimatedEnd, format.Quantity(summary.Measure, proj.Total))
		}
	}
}

func writeGroups(w io.Writer, p *message.Printer, title, measure string, groups []forecast.GroupTotal) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s | Contracts | Amount\n", title)
	fmt.Fprintf(w, "%s | _________ | ______\n", strings.Repeat("_", len(title)))
	for _, g := range groups {
		_, _ = p.Fprintf(w, "%s | %d | %s\n", g.Name, g.Contracts, format.Quantity(measure, g.Total))
	}
}

// CsvFormat writes one row per contract with a column per period key,
// followed by a totals row.
func CsvFormat(w io.Writer, result forecast.Forecast) error {
	keys := result.Summary.Keys
	cw := csv.NewWriter(w)

	header := append([]string{"contract", "name", "department", "manager", "contour", "remaining periods", "percent complete"}, keys...)
	header = append(header, "total")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, proj := range result.Projections {
		view := proj.Series.TableView()
		row := []string{
			proj.ContractID,
			proj.Name,
			proj.Department,
			proj.ProjectManager,
			proj.Contour.String(),
			strconv.Itoa(proj.RemainingPeriods),
			formatFloat(proj.PercentComplete),
		}
		for _, key := range keys {
			row = append(row, formatFloat(view[key]))
		}
		row = append(row, formatFloat(proj.Total))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	totals := []string{"total", "", "", "", "", "", ""}
	for _, key := range keys {
		totals = append(totals, formatFloat(result.Summary.Columns[key]))
	}
	totals = append(totals, formatFloat(result.Summary.GrandTotal))
	if err := cw.Write(totals); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// CsvString renders CsvFormat into a string.
func CsvString(result forecast.Forecast) (string, error) {
	var sb strings.Builder
	if err := CsvFormat(&sb, result); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
