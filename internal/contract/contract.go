// Package contract defines the contract records consumed by the forecast
// engine and the functions for loading and filtering them.
package contract

import (
	"math"
	"strings"

	"github.com/iwvelando/backlog-forecast/pkg/contour"
	"github.com/iwvelando/backlog-forecast/pkg/mathutil"
)

// Contract is a read-only contract record supplied by an external system.
// Every numeric field decodes leniently; absent or invalid values are 0.
type Contract struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name,omitempty" yaml:"name,omitempty"`
	Value            Number  `json:"value" yaml:"value"`
	Backlog          Number  `json:"backlog" yaml:"backlog"`
	EarnedRevenue    Number  `json:"earnedRevenue" yaml:"earnedRevenue"`
	ProjectedRevenue Number  `json:"projectedRevenue" yaml:"projectedRevenue"`
	Trades           []Trade `json:"trades,omitempty" yaml:"trades,omitempty"`
	Department       string  `json:"department,omitempty" yaml:"department,omitempty"`
	Market           string  `json:"market,omitempty" yaml:"market,omitempty"`
	ProjectManager   string  `json:"projectManager,omitempty" yaml:"projectManager,omitempty"`
	Status           string  `json:"status,omitempty" yaml:"status,omitempty"`
	ProjectID        *string `json:"projectId,omitempty" yaml:"projectId,omitempty"`

	// Overrides carried on the record itself. Entries held by the override
	// manager take precedence. OverrideEndMonths decodes like every other
	// number; see EndMonthsOverride.
	OverrideEndMonths Number        `json:"overrideEndMonths,omitempty" yaml:"overrideEndMonths,omitempty"`
	OverrideContour   *contour.Type `json:"overrideContour,omitempty" yaml:"overrideContour,omitempty"`
}

// Trade holds the hour totals for one labor discipline on a contract.
type Trade struct {
	Name           string `json:"name" yaml:"name"`
	EstimatedHours Number `json:"estimatedHours" yaml:"estimatedHours"`
	JTDHours       Number `json:"jtdHours" yaml:"jtdHours"`
	ProjectedHours Number `json:"projectedHours" yaml:"projectedHours"`
}

// RemainingHours is projected hours (or estimated hours when no projection
// exists) less job-to-date hours, floored at zero.
func (t Trade) RemainingHours() float64 {
	basis := t.ProjectedHours.Float()
	if basis <= 0 {
		basis = t.EstimatedHours.Float()
	}
	return mathutil.NonNegative(basis - t.JTDHours.Float())
}

// PercentComplete is earned revenue over projected revenue as a percentage in
// [0, 100]. A contract without projected revenue is 0% complete.
func (c Contract) PercentComplete() float64 {
	projected := c.ProjectedRevenue.Float()
	if projected <= 0 {
		return 0
	}
	pct := mathutil.CalculatePercentage(mathutil.NonNegative(c.EarnedRevenue.Float()), projected)
	return mathutil.Clamp(pct, 0, 100)
}

// EndMonthsOverride returns the record's end-months override truncated to
// whole months, or nil when it is absent, invalid or below one month.
func (c Contract) EndMonthsOverride() *int {
	months := math.Trunc(mathutil.NonNegative(c.OverrideEndMonths.Float()))
	if months < 1 {
		return nil
	}
	if months > math.MaxInt32 {
		months = math.MaxInt32
	}
	v := int(months)
	return &v
}

// RemainingRevenue is the backlog floored at zero.
func (c Contract) RemainingRevenue() float64 {
	return mathutil.NonNegative(c.Backlog.Float())
}

// HasStatus reports whether the contract status matches any of statuses,
// ignoring case and surrounding space.
func (c Contract) HasStatus(statuses []string) bool {
	return containsFold(statuses, c.Status)
}

func containsFold(values []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
