// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"sort"

	"github.com/iwvelando/backlog-forecast/pkg/duration"
)

// ValidateDurationRules returns warnings for rules that can never match,
// overlap an earlier rule, leave gaps between consecutive ranges, or carry
// fewer than one month. Rules are still applied first-match-wins regardless.
func ValidateDurationRules(rules []duration.Rule) []string {
	var warnings []string

	for i, rule := range rules {
		name := ruleName(i, rule)
		if rule.Months < 1 {
			warnings = append(warnings, fmt.Sprintf("Duration rule %s has %d months; contracts in range get %d",
				name, rule.Months, rule.Months))
		}
		if !rule.Unbounded() && rule.MaxValue <= rule.MinValue {
			warnings = append(warnings, fmt.Sprintf("Duration rule %s has an empty range (%.2f >= %.2f) and never matches",
				name, rule.MinValue, rule.MaxValue))
		}
	}

	ordered := make([]duration.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Unbounded() || rule.MaxValue > rule.MinValue {
			ordered = append(ordered, rule)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinValue < ordered[j].MinValue
	})

	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if prev.Unbounded() {
			warnings = append(warnings, fmt.Sprintf("Duration rule %q is unbounded and overlaps every rule above %.2f",
				prev.Label, prev.MinValue))
			break
		}
		switch {
		case cur.MinValue < prev.MaxValue:
			warnings = append(warnings, fmt.Sprintf("Duration rules %q and %q overlap between %.2f and %.2f; the earlier rule in the list wins",
				prev.Label, cur.Label, cur.MinValue, prev.MaxValue))
		case cur.MinValue > prev.MaxValue:
			warnings = append(warnings, fmt.Sprintf("Duration rules leave a gap between %.2f and %.2f; values there use the %d month fallback",
				prev.MaxValue, cur.MinValue, duration.FallbackMonths))
		}
	}

	return warnings
}

func ruleName(index int, rule duration.Rule) string {
	if rule.Label != "" {
		return fmt.Sprintf("%q", rule.Label)
	}
	return fmt.Sprintf("#%d", index+1)
}
