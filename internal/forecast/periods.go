package forecast

import (
	"math"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
	"github.com/iwvelando/backlog-forecast/pkg/mathutil"
)

// ceilSlack absorbs float error so that, e.g., 3*(1-2/3) rounds up to 1 and not 2.
const ceilSlack = 1e-9

// RemainingPeriods returns how many future months remain for a contract, in
// [1, 36]. An override wins when present; otherwise the estimated total
// duration is scaled by the fraction of work left.
func RemainingPeriods(value, percentComplete float64, overrideMonths *int, rules []duration.Rule) int {
	if overrideMonths != nil {
		return mathutil.ClampInt(*overrideMonths, constants.MinPeriods, constants.MaxPeriods)
	}

	total := duration.Estimate(mathutil.NonNegative(value), rules)
	fractionLeft := 1 - mathutil.Clamp(percentComplete, 0, 100)/constants.PercentageMultiplier
	months := int(math.Ceil(float64(total)*fractionLeft - ceilSlack))
	return mathutil.ClampInt(months, constants.MinPeriods, constants.MaxPeriods)
}
