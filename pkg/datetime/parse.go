// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
)

const (
	// DateTimeLayout is the monthly period key format.
	DateTimeLayout = constants.DateTimeLayout

	// YearLayout is the yearly period key format.
	YearLayout = constants.YearLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// MonthStart truncates t to midnight UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the first day of the month that is offset months after
// the month containing t.
func AddMonths(t time.Time, offset int) time.Time {
	return MonthStart(t).AddDate(0, offset, 0)
}

// MonthKey formats the month offset months after t as a period key.
func MonthKey(t time.Time, offset int) string {
	return AddMonths(t, offset).Format(DateTimeLayout)
}

// YearKey formats the calendar year of the month offset months after t.
func YearKey(t time.Time, offset int) string {
	return AddMonths(t, offset).Format(YearLayout)
}
