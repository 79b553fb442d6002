package features

import "math"

// Periods of the calendar fields encoded as sine/cosine pairs.
const (
	PeriodMonth   = 12
	PeriodWeekday = 7
	PeriodDay     = 31
	PeriodHour    = 24
)

// Cyclical maps a periodic value onto the unit circle and returns
// (sin(2π·v/period), cos(2π·v/period)).
//
// December (12) and January (1) end up adjacent, which a linear encoding
// cannot express. The caller is responsible for passing a value that makes
// sense for the period; no range check is done here.
func Cyclical(v, period float64) (sin, cos float64) {
	angle := 2 * math.Pi * v / period
	return math.Sin(angle), math.Cos(angle)
}
