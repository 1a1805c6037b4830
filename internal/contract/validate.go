package contract

import "fmt"

// Warnings reports records the forecast will treat as zero or skip: missing
// ids, duplicate ids and negative numeric inputs. None of these stop a run.
func Warnings(contracts []Contract) []string {
	var warnings []string
	seen := make(map[string]bool, len(contracts))

	for i, c := range contracts {
		if c.ID == "" {
			warnings = append(warnings, fmt.Sprintf("Contract #%d has no id; overrides cannot be attached to it", i+1))
		} else if seen[c.ID] {
			warnings = append(warnings, fmt.Sprintf("Contract %s appears more than once; overrides apply to every copy", c.ID))
		}
		seen[c.ID] = true

		name := c.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		fields := []struct {
			label string
			value Number
		}{
			{"value", c.Value},
			{"backlog", c.Backlog},
			{"earned revenue", c.EarnedRevenue},
			{"projected revenue", c.ProjectedRevenue},
		}
		for _, f := range fields {
			if f.value < 0 {
				warnings = append(warnings, fmt.Sprintf("Contract %s has negative %s %.2f; treated as 0", name, f.label, f.value.Float()))
			}
		}
		for _, trade := range c.Trades {
			if trade.EstimatedHours < 0 || trade.JTDHours < 0 || trade.ProjectedHours < 0 {
				warnings = append(warnings, fmt.Sprintf("Contract %s trade %q has negative hours", name, trade.Name))
			}
		}
	}
	return warnings
}
