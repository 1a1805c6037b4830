// Package duration estimates a contract's total duration from its dollar value
// using an ordered list of value-range rules.
package duration

import (
	"fmt"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
)

// FallbackMonths is returned when no rule matches a value.
const FallbackMonths = constants.FallbackDurationMonths

// Rule maps the half-open value range [MinValue, MaxValue) to an expected
// total duration. A MaxValue of zero or less leaves the range unbounded above.
type Rule struct {
	MinValue float64 `yaml:"minValue" json:"minValue" mapstructure:"minValue"`
	MaxValue float64 `yaml:"maxValue" json:"maxValue" mapstructure:"maxValue"`
	Months   int     `yaml:"months" json:"months" mapstructure:"months"`
	Label    string  `yaml:"label" json:"label" mapstructure:"label"`
}

// Unbounded reports whether the rule has no upper limit.
func (r Rule) Unbounded() bool {
	return r.MaxValue <= 0
}

// Matches reports whether value falls inside the rule's range.
func (r Rule) Matches(value float64) bool {
	if value < r.MinValue {
		return false
	}
	return r.Unbounded() || value < r.MaxValue
}

// DefaultRules returns a fresh copy of the stock rule list.
func DefaultRules() []Rule {
	return []Rule{
		{MinValue: 0, MaxValue: 500_000, Months: 3, Label: "$0-500K"},
		{MinValue: 500_000, MaxValue: 2_000_000, Months: 6, Label: "$500K-2M"},
		{MinValue: 2_000_000, MaxValue: 5_000_000, Months: 8, Label: "$2M-5M"},
		{MinValue: 5_000_000, MaxValue: 10_000_000, Months: 12, Label: "$5M-10M"},
		{MinValue: 10_000_000, MaxValue: 0, Months: 24, Label: "$10M+"},
	}
}

// Estimate returns the months of the first rule, in list order, whose range
// contains value. Unmatched values get FallbackMonths.
func Estimate(value float64, rules []Rule) int {
	for _, rule := range rules {
		if rule.Matches(value) {
			return rule.Months
		}
	}
	return FallbackMonths
}

// RuleSet is an editable rule list. The zero value holds no rules and so
// estimates every value at FallbackMonths.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet copies rules into a new RuleSet. An empty list selects the defaults.
func NewRuleSet(rules []Rule) *RuleSet {
	if len(rules) == 0 {
		return &RuleSet{rules: DefaultRules()}
	}
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the current list.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// Estimate applies the current list to value.
func (rs *RuleSet) Estimate(value float64) int {
	return Estimate(value, rs.rules)
}

// SetMonths edits the months of the rule at index.
func (rs *RuleSet) SetMonths(index, months int) error {
	if index < 0 || index >= len(rs.rules) {
		return fmt.Errorf("rule index %d out of range [0,%d)", index, len(rs.rules))
	}
	if months < 1 {
		return fmt.Errorf("rule months must be at least 1, got %d", months)
	}
	rs.rules[index].Months = months
	return nil
}

// Reset restores the default rule list.
func (rs *RuleSet) Reset() {
	rs.rules = DefaultRules()
}
