package forecast

import (
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/contour"
	"github.com/iwvelando/backlog-forecast/pkg/datetime"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
)

// UnassignedTrade names hours from a trade record without a name.
const UnassignedTrade = "Unassigned"

// Projection is the derived, per-contract forecast. It is recomputed from its
// inputs and never persisted.
type Projection struct {
	ContractID       string            `json:"contractId"`
	Name             string            `json:"name,omitempty"`
	Department       string            `json:"department,omitempty"`
	ProjectManager   string            `json:"projectManager,omitempty"`
	Market           string            `json:"market,omitempty"`
	Status           string            `json:"status,omitempty"`
	Measure          string            `json:"measure"`
	RemainingPeriods int               `json:"remainingPeriods"`
	Contour          contour.Type      `json:"contour"`
	IsAutoContour    bool              `json:"isAutoContour"`
	PercentComplete  float64           `json:"percentComplete"`
	EstimatedEnd     string            `json:"estimatedEnd"`
	Series           Series            `json:"series"`
	Total            float64           `json:"total"`
	Trades           map[string]Series `json:"trades,omitempty"`
}

// Params are the shared settings for projecting a single contract.
type Params struct {
	Measure     string
	Rules       []duration.Rule
	AsOf        time.Time
	NearHorizon int
}

// Project builds the projection for c. Entry fields take precedence over the
// overrides carried on the contract record. ok is false when nothing remains
// to distribute, in which case the contract is left out of every total.
func Project(c contract.Contract, entry *override.Entry, p Params) (Projection, bool) {
	overrideMonths := c.EndMonthsOverride()
	overrideContour := c.OverrideContour
	if entry != nil {
		if entry.EndMonths != nil {
			overrideMonths = entry.EndMonths
		}
		if entry.Contour != nil {
			overrideContour = entry.Contour
		}
	}

	pct := c.PercentComplete()
	selection := contour.Select(overrideContour, pct)
	periods := RemainingPeriods(c.Value.Float(), pct, overrideMonths, p.Rules)
	weights := contour.Weights(periods, selection.Type)

	proj := Projection{
		ContractID:       c.ID,
		Name:             c.Name,
		Department:       c.Department,
		ProjectManager:   c.ProjectManager,
		Market:           c.Market,
		Status:           c.Status,
		Measure:          normalizeMeasure(p.Measure),
		RemainingPeriods: periods,
		Contour:          selection.Type,
		IsAutoContour:    selection.Auto,
		PercentComplete:  pct,
		EstimatedEnd:     datetime.MonthKey(p.AsOf, periods-1),
	}

	if proj.Measure == constants.MeasureHours {
		series, trades, ok := projectHours(c.Trades, weights, p)
		if !ok {
			return Projection{}, false
		}
		proj.Series = series
		proj.Trades = trades
	} else {
		series, ok := Distribute(c.RemainingRevenue(), weights, p.AsOf, p.NearHorizon)
		if !ok {
			return Projection{}, false
		}
		proj.Series = series
	}

	proj.Total = proj.Series.Total()
	return proj, true
}

// Trades with nothing remaining are omitted; the contract series is the sum
// of the remaining trades.
func projectHours(trades []contract.Trade, weights []float64, p Params) (Series, map[string]Series, bool) {
	byTrade := make(map[string]Series)
	for _, trade := range trades {
		series, ok := Distribute(trade.RemainingHours(), weights, p.AsOf, p.NearHorizon)
		if !ok {
			continue
		}
		name := strings.TrimSpace(trade.Name)
		if name == "" {
			name = UnassignedTrade
		}
		existing := byTrade[name]
		existing.Add(series)
		byTrade[name] = existing
	}
	if len(byTrade) == 0 {
		return Series{}, nil, false
	}

	names := make([]string, 0, len(byTrade))
	for name := range byTrade {
		names = append(names, name)
	}
	sort.Strings(names)

	total := newSeries()
	for _, name := range names {
		total.Add(byTrade[name])
	}
	return total, byTrade, true
}

func normalizeMeasure(measure string) string {
	if strings.EqualFold(strings.TrimSpace(measure), constants.MeasureHours) {
		return constants.MeasureHours
	}
	return constants.MeasureRevenue
}
