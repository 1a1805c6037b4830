package contour

// Selection is the contour chosen for a contract and whether it was derived
// automatically or taken from a user override.
type Selection struct {
	Type Type
	Auto bool
}

// AutoBand is a percent-complete upper bound (exclusive) and its contour.
type AutoBand struct {
	Below float64
	Type  Type
}

// DefaultBands drive automatic selection. A percent complete at or above the
// last bound selects Flat.
var DefaultBands = []AutoBand{
	{Below: 15, Type: SCurve},
	{Below: 40, Type: Bell},
	{Below: 70, Type: BackLoaded},
	{Below: 90, Type: RampDown},
}

// Select returns the override when present (Manual mode), otherwise the
// contour for the percent-complete band (Auto mode).
func Select(override *Type, percentComplete float64) Selection {
	if override != nil && override.Valid() {
		return Selection{Type: *override, Auto: false}
	}
	return Selection{Type: ForPercentComplete(percentComplete), Auto: true}
}

// ForPercentComplete maps percent complete (0-100) onto DefaultBands.
func ForPercentComplete(percentComplete float64) Type {
	for _, band := range DefaultBands {
		if percentComplete < band.Below {
			return band.Type
		}
	}
	return Flat
}
