package forecast

import (
	"time"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/datetime"
)

// Series is one quantity spread over future months.
//
// Values holds every projected month by offset from the as-of month and feeds
// the 36-month chart and quarter totals. Monthly and Yearly together form the
// table view: months inside the near horizon appear only in Monthly (YYYY-MM),
// later months only inside their year's total in Yearly (YYYY).
type Series struct {
	Values  []float64          `json:"values"`
	Monthly map[string]float64 `json:"monthly"`
	Yearly  map[string]float64 `json:"yearly,omitempty"`
}

func newSeries() Series {
	return Series{
		Monthly: make(map[string]float64),
		Yearly:  make(map[string]float64),
	}
}

// Distribute spreads quantity over len(weights) months starting at the month
// of asOf. Weights must sum to their count (see contour.Weights) so the
// values sum back to quantity. A non-positive quantity produces no series and
// ok is false.
func Distribute(quantity float64, weights []float64, asOf time.Time, nearHorizon int) (series Series, ok bool) {
	if quantity <= 0 || len(weights) == 0 {
		return Series{}, false
	}
	if nearHorizon <= 0 {
		nearHorizon = constants.NearHorizonMonths
	}

	series = newSeries()
	series.Values = make([]float64, len(weights))
	base := quantity / float64(len(weights))
	for i, w := range weights {
		v := base * w
		series.Values[i] = v
		series.place(asOf, i, v, nearHorizon)
	}
	return series, true
}

func (s *Series) place(asOf time.Time, offset int, v float64, nearHorizon int) {
	if offset < nearHorizon {
		s.Monthly[datetime.MonthKey(asOf, offset)] += v
		return
	}
	s.Yearly[datetime.YearKey(asOf, offset)] += v
}

// Add accumulates other into s. Both series must share the same as-of month.
func (s *Series) Add(other Series) {
	if s.Monthly == nil {
		s.Monthly = make(map[string]float64)
	}
	if s.Yearly == nil {
		s.Yearly = make(map[string]float64)
	}
	if len(other.Values) > len(s.Values) {
		grown := make([]float64, len(other.Values))
		copy(grown, s.Values)
		s.Values = grown
	}
	for i, v := range other.Values {
		s.Values[i] += v
	}
	for k, v := range other.Monthly {
		s.Monthly[k] += v
	}
	for k, v := range other.Yearly {
		s.Yearly[k] += v
	}
}

// Total sums the series.
func (s Series) Total() float64 {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// TableView merges Monthly and Yearly into one map keyed by period key.
func (s Series) TableView() map[string]float64 {
	view := make(map[string]float64, len(s.Monthly)+len(s.Yearly))
	for k, v := range s.Monthly {
		view[k] = v
	}
	for k, v := range s.Yearly {
		view[k] = v
	}
	return view
}

// PeriodKeys returns the table's period universe for asOf: one key per month
// of the near horizon followed by the distinct years of the remaining months
// up to maxPeriods.
func PeriodKeys(asOf time.Time, nearHorizon, maxPeriods int) []string {
	if nearHorizon <= 0 {
		nearHorizon = constants.NearHorizonMonths
	}
	if maxPeriods <= 0 {
		maxPeriods = constants.MaxPeriods
	}

	keys := make([]string, 0, nearHorizon+4)
	for i := 0; i < nearHorizon && i < maxPeriods; i++ {
		keys = append(keys, datetime.MonthKey(asOf, i))
	}
	lastYear := ""
	for i := nearHorizon; i < maxPeriods; i++ {
		year := datetime.YearKey(asOf, i)
		if year != lastYear {
			keys = append(keys, year)
			lastYear = year
		}
	}
	return keys
}

// ChartKeys returns the month key for each of the maxPeriods chart bars.
func ChartKeys(asOf time.Time, maxPeriods int) []string {
	if maxPeriods <= 0 {
		maxPeriods = constants.MaxPeriods
	}
	keys := make([]string, maxPeriods)
	for i := range keys {
		keys[i] = datetime.MonthKey(asOf, i)
	}
	return keys
}
