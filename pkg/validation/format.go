// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatXLSX:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatXLSX, format)
}

// ValidateMeasure checks if the measure is revenue or hours.
func ValidateMeasure(measure string) error {
	if measure != constants.MeasureRevenue && measure != constants.MeasureHours {
		return fmt.Errorf("expected measure of %s or %s, got %s",
			constants.MeasureRevenue, constants.MeasureHours, measure)
	}
	return nil
}
