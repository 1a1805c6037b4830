// Package forecast projects each contract's remaining backlog or labor hours
// over future months and aggregates the projections across contracts.
package forecast

import (
	"time"

	"github.com/iwvelando/backlog-forecast/internal/config"
	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/pkg/datetime"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
	"go.uber.org/zap"
)

// Inputs is everything a forecast depends on. A forecast is a pure function
// of its Inputs.
type Inputs struct {
	Contracts        []contract.Contract       `json:"contracts"`
	Rules            []duration.Rule           `json:"rules"`
	Overrides        map[string]override.Entry `json:"overrides"`
	Filter           contract.Filter           `json:"filter"`
	InactiveStatuses []string                  `json:"inactiveStatuses"`
	Measure          string                    `json:"measure"`
	AsOf             time.Time                 `json:"asOf"`
	NearHorizon      int                       `json:"nearHorizon"`
	QuarterCount     int                       `json:"quarterCount"`
}

// Forecast holds the projections of every included contract and their summary.
type Forecast struct {
	Projections []Projection `json:"projections"`
	Summary     Summary      `json:"summary"`
	// Excluded lists contracts that passed the filter but had nothing left
	// to distribute.
	Excluded []string `json:"excluded,omitempty"`
}

// NewInputs assembles Inputs from the loaded configuration.
func NewInputs(conf config.Configuration, contracts []contract.Contract, overrides map[string]override.Entry, asOf time.Time) Inputs {
	return Inputs{
		Contracts:        contracts,
		Rules:            conf.DurationRules,
		Overrides:        overrides,
		Filter:           conf.Filters,
		InactiveStatuses: conf.Forecast.InactiveStatuses,
		Measure:          conf.Forecast.Measure,
		AsOf:             asOf,
		NearHorizon:      conf.Forecast.NearHorizonMonths,
		QuarterCount:     conf.Forecast.QuarterCount,
	}
}

// GetForecast projects every active contract that passes the filter and
// aggregates the results. It never fails: bad inputs contribute zero.
func GetForecast(logger *zap.Logger, in Inputs) Forecast {
	if logger == nil {
		logger = zap.NewNop()
	}

	asOf := datetime.MonthStart(in.AsOf)
	params := Params{
		Measure:     in.Measure,
		Rules:       in.Rules,
		AsOf:        asOf,
		NearHorizon: in.NearHorizon,
	}

	var result Forecast
	for _, c := range in.Contracts {
		if c.HasStatus(in.InactiveStatuses) {
			logger.Debug("skipping inactive contract",
				zap.String("op", "forecast.GetForecast"),
				zap.String("contract", c.ID),
				zap.String("status", c.Status),
			)
			continue
		}
		if !in.Filter.Match(c) {
			continue
		}

		var entry *override.Entry
		if e, ok := in.Overrides[c.ID]; ok {
			entry = &e
		}

		proj, ok := Project(c, entry, params)
		if !ok {
			logger.Debug("excluding contract with nothing remaining",
				zap.String("op", "forecast.GetForecast"),
				zap.String("contract", c.ID),
			)
			result.Excluded = append(result.Excluded, c.ID)
			continue
		}
		result.Projections = append(result.Projections, proj)
	}

	result.Summary = Aggregate(result.Projections, asOf, AggregateOptions{
		Measure:      in.Measure,
		NearHorizon:  in.NearHorizon,
		QuarterCount: in.QuarterCount,
	})
	return result
}
