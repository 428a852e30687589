package validation

import (
	"github.com/iwvelando/mortgage-compare/pkg/mathutil"
)

// ValidatePositive fails with InvalidInput unless value is finite and strictly positive.
func ValidatePositive(op, field string, value float64) error {
	if !mathutil.IsFinite(value) {
		return InvalidInput(op, field, value, "must be a finite number")
	}
	if value <= 0 {
		return InvalidInput(op, field, value, "must be positive")
	}
	return nil
}

// ValidateFinite fails with InvalidInput when value is infinite or NaN.
func ValidateFinite(op, field string, value float64) error {
	if !mathutil.IsFinite(value) {
		return InvalidInput(op, field, value, "must be a finite number")
	}
	return nil
}

// ValidateMonths fails with InvalidInput unless months is strictly positive.
func ValidateMonths(op, field string, months int) error {
	if months <= 0 {
		return InvalidInput(op, field, float64(months), "must be a positive number of months")
	}
	return nil
}

// ValidateHorizon fails with OutOfRange unless 0 <= months <= limit.
func ValidateHorizon(op string, months, limit int) error {
	if months < 0 {
		return OutOfRange(op, "months", float64(months), "horizon cannot be negative")
	}
	if months > limit {
		return OutOfRange(op, "months", float64(months), "horizon exceeds the available term")
	}
	return nil
}
