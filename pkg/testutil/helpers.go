// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/forecast"
)

// FindProjection finds a projection by contract id in the results slice.
// Returns a pointer to the projection if found, nil otherwise.
func FindProjection(projections []forecast.Projection, contractID string) *forecast.Projection {
	for i := range projections {
		if projections[i].ContractID == contractID {
			return &projections[i]
		}
	}
	return nil
}

// FindGroup finds a department or manager total by name.
func FindGroup(groups []forecast.GroupTotal, name string) *forecast.GroupTotal {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i]
		}
	}
	return nil
}

// SampleContracts returns a small contract set covering both measures, an
// inactive contract and a contract with no backlog left.
func SampleContracts() []contract.Contract {
	return []contract.Contract{
		{
			ID:               "C-100",
			Name:             "Riverside School",
			Value:            1_200_000,
			Backlog:          120_000,
			EarnedRevenue:    0,
			ProjectedRevenue: 1_200_000,
			Department:       "Electrical",
			ProjectManager:   "Avery",
			Market:           "Education",
			Status:           "active",
			Trades: []contract.Trade{
				{Name: "Electrician", EstimatedHours: 1200, JTDHours: 0},
				{Name: "Apprentice", EstimatedHours: 600, JTDHours: 0},
			},
		},
		{
			ID:               "C-200",
			Name:             "Harbor Clinic",
			Value:            3_000_000,
			Backlog:          1_500_000,
			EarnedRevenue:    1_500_000,
			ProjectedRevenue: 3_000_000,
			Department:       "Mechanical",
			ProjectManager:   "Jordan",
			Market:           "Healthcare",
			Status:           "active",
			Trades: []contract.Trade{
				{Name: "Pipefitter", EstimatedHours: 4000, JTDHours: 2500, ProjectedHours: 4200},
			},
		},
		{
			ID:               "C-300",
			Name:             "Old Warehouse",
			Value:            400_000,
			Backlog:          50_000,
			EarnedRevenue:    350_000,
			ProjectedRevenue: 400_000,
			Department:       "Electrical",
			ProjectManager:   "Avery",
			Status:           "Closed",
		},
		{
			ID:               "C-400",
			Name:             "Finished Office",
			Value:            250_000,
			Backlog:          0,
			EarnedRevenue:    250_000,
			ProjectedRevenue: 250_000,
			Department:       "Electrical",
			ProjectManager:   "Riley",
			Status:           "active",
		},
	}
}
