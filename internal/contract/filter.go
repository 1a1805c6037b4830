package contract

import "strings"

// Filter narrows a contract set. Empty fields match everything; a non-empty
// list matches a contract whose field equals any entry, ignoring case.
type Filter struct {
	Departments []string `json:"departments,omitempty" yaml:"departments,omitempty" mapstructure:"departments"`
	Managers    []string `json:"managers,omitempty" yaml:"managers,omitempty" mapstructure:"managers"`
	Markets     []string `json:"markets,omitempty" yaml:"markets,omitempty" mapstructure:"markets"`
	Statuses    []string `json:"statuses,omitempty" yaml:"statuses,omitempty" mapstructure:"statuses"`
	// Search matches a case-insensitive substring of the contract id or name.
	Search string `json:"search,omitempty" yaml:"search,omitempty" mapstructure:"search"`
}

// Match reports whether c passes every criterion of the filter.
func (f Filter) Match(c Contract) bool {
	if len(f.Departments) > 0 && !containsFold(f.Departments, c.Department) {
		return false
	}
	if len(f.Managers) > 0 && !containsFold(f.Managers, c.ProjectManager) {
		return false
	}
	if len(f.Markets) > 0 && !containsFold(f.Markets, c.Market) {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(f.Statuses, c.Status) {
		return false
	}
	if needle := strings.ToLower(strings.TrimSpace(f.Search)); needle != "" {
		if !strings.Contains(strings.ToLower(c.ID), needle) && !strings.Contains(strings.ToLower(c.Name), needle) {
			return false
		}
	}
	return true
}

// Apply returns the contracts that match the filter, preserving order.
func (f Filter) Apply(contracts []Contract) []Contract {
	matched := make([]Contract, 0, len(contracts))
	for _, c := range contracts {
		if f.Match(c) {
			matched = append(matched, c)
		}
	}
	return matched
}
