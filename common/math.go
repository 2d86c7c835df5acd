package common

import "math"

// DecimalToFixed rounds num to the given number of decimal places.
// Workout summaries report meters and seconds to one place, km/h to two.
func DecimalToFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return math.Round(num*output) / output
}
