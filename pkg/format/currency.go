// Package format renders numeric values for human-facing output.
package format

import (
	"math"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := printer().Sprintf("$%.2f", math.Abs(amount))
	if amount < 0 {
		return "-" + formatted
	}
	return formatted
}

// Hours returns an hour quantity with thousands separators and one decimal (e.g., "1,234.5 h").
func Hours(amount float64) string {
	return printer().Sprintf("%.1f h", amount)
}

// Quantity formats amount as currency or hours depending on measure.
func Quantity(measure string, amount float64) string {
	if measure == constants.MeasureHours {
		return Hours(amount)
	}
	return Currency(amount)
}

// Percent formats a 0-100 value with one decimal.
func Percent(value float64) string {
	return printer().Sprintf("%.1f%%", value)
}
