package forecast

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/datetime"
)

// UngroupedLabel is used for contracts without a department or manager.
const UngroupedLabel = "(none)"

// Summary is the cross-contract aggregation of a projection set.
type Summary struct {
	Measure       string                        `json:"measure"`
	AsOf          string                        `json:"asOf"`
	Keys          []string                      `json:"keys"`
	Columns       map[string]float64            `json:"columns"`
	Trades        map[string]map[string]float64 `json:"trades,omitempty"`
	TradeTotals   map[string]float64            `json:"tradeTotals,omitempty"`
	Departments   []GroupTotal                  `json:"departments"`
	Managers      []GroupTotal                  `json:"managers"`
	Quarters      []QuarterTotal                `json:"quarters"`
	Chart         []MonthTotal                  `json:"chart"`
	GrandTotal    float64                       `json:"grandTotal"`
	ContractCount int                           `json:"contractCount"`
}

// GroupTotal is the table-view total of one department or manager.
type GroupTotal struct {
	Name      string             `json:"name"`
	Periods   map[string]float64 `json:"periods"`
	Total     float64            `json:"total"`
	Contracts int                `json:"contracts"`
}

// QuarterTotal is one rolling three-month window starting at the as-of month.
type QuarterTotal struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Total float64 `json:"total"`
}

// MonthTotal is one bar of the 36-month chart.
type MonthTotal struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
}

// AggregateOptions shape the summary.
type AggregateOptions struct {
	Measure      string
	NearHorizon  int
	QuarterCount int
}

// Aggregate sums projections into column, trade, department, manager,
// quarter and chart totals.
func Aggregate(projections []Projection, asOf time.Time, opts AggregateOptions) Summary {
	if opts.NearHorizon <= 0 {
		opts.NearHorizon = constants.NearHorizonMonths
	}
	if opts.QuarterCount <= 0 {
		opts.QuarterCount = constants.DefaultQuarterCount
	}

	summary := Summary{
		Measure: normalizeMeasure(opts.Measure),
		AsOf:    datetime.MonthKey(asOf, 0),
		Keys:    PeriodKeys(asOf, opts.NearHorizon, constants.MaxPeriods),
		Columns: make(map[string]float64),
	}
	for _, key := range summary.Keys {
		summary.Columns[key] = 0
	}

	chart := make([]float64, constants.MaxPeriods)
	departments := make(map[string]*GroupTotal)
	managers := make(map[string]*GroupTotal)

	for _, proj := range projections {
		view := proj.Series.TableView()
		for key, v := range view {
			summary.Columns[key] += v
		}
		for i, v := range proj.Series.Values {
			if i < len(chart) {
				chart[i] += v
			}
		}
		addGroup(departments, proj.Department, view, proj.Total)
		addGroup(managers, proj.ProjectManager, view, proj.Total)

		for trade, series := range proj.Trades {
			if summary.Trades == nil {
				summary.Trades = make(map[string]map[string]float64)
				summary.TradeTotals = make(map[string]float64)
			}
			periods, ok := summary.Trades[trade]
			if !ok {
				periods = make(map[string]float64)
				summary.Trades[trade] = periods
			}
			for key, v := range series.TableView() {
				periods[key] += v
			}
			summary.TradeTotals[trade] += series.Total()
		}

		summary.GrandTotal += proj.Total
		summary.ContractCount++
	}

	summary.Chart = make([]MonthTotal, len(chart))
	for i, v := range chart {
		summary.Chart[i] = MonthTotal{Key: datetime.MonthKey(asOf, i), Total: v}
	}
	summary.Quarters = quarterTotals(chart, asOf, opts.QuarterCount)
	summary.Departments = sortedGroups(departments)
	summary.Managers = sortedGroups(managers)
	return summary
}

// Quarter q spans chart months [3q, 3q+3) whether or not those months fall
// inside the near horizon.
func quarterTotals(chart []float64, asOf time.Time, count int) []QuarterTotal {
	quarters := make([]QuarterTotal, 0, count)
	for q := 0; q < count; q++ {
		start := q * constants.MonthsPerQuarter
		end := start + constants.MonthsPerQuarter
		if start >= len(chart) {
			break
		}
		total := 0.0
		for i := start; i < end && i < len(chart); i++ {
			total += chart[i]
		}
		quarters = append(quarters, QuarterTotal{
			Index: q,
			Label: fmt.Sprintf("Q%d", q+1),
			Start: datetime.MonthKey(asOf, start),
			End:   datetime.MonthKey(asOf, end-1),
			Total: total,
		})
	}
	return quarters
}

func addGroup(groups map[string]*GroupTotal, name string, view map[string]float64, total float64) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = UngroupedLabel
	}
	group, ok := groups[name]
	if !ok {
		group = &GroupTotal{Name: name, Periods: make(map[string]float64)}
		groups[name] = group
	}
	for key, v := range view {
		group.Periods[key] += v
	}
	group.Total += total
	group.Contracts++
}

// Largest total first; ties by name.
func sortedGroups(groups map[string]*GroupTotal) []GroupTotal {
	out := make([]GroupTotal, 0, len(groups))
	for _, group := range groups {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}
