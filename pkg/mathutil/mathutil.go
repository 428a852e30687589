// Package mathutil provides small numeric helpers shared by the calculators.
package mathutil

import (
	"math"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
)

// IsFinite reports whether a value is neither infinite nor NaN.
func IsFinite(val float64) bool {
	return !math.IsInf(val, 0) && !math.IsNaN(val)
}

// Ratio returns value/total, or 0 when total is zero.
func Ratio(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total
}

// CalculatePercentage calculates what percentage value is of total, or 0
// when total is zero.
func CalculatePercentage(value, total float64) float64 {
	return Ratio(value, total) * constants.PercentageMultiplier
}
