package mortgage

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
)

// Rate is a monthly growth factor: a balance of B becomes B*Rate after one
// month of interest. A Rate of 1 means no interest.
type Rate float64

// FromAnnualPercent converts an effective annual percentage into a monthly
// factor, (1 + p/100)^(1/12).
func FromAnnualPercent(percent float64) Rate {
	return Rate(math.Pow(1+percent/constants.PercentageMultiplier, 1.0/constants.MonthsPerYear))
}

// FromNominalPercent converts a nominal annual percentage into a monthly
// factor by dividing it evenly across months, 1 + p/1200.
func FromNominalPercent(percent float64) Rate {
	return Rate(1 + percent/(constants.PercentageMultiplier*constants.MonthsPerYear))
}

// FromConvention converts a percentage using the named rate convention. An
// empty convention is treated as effective.
func FromConvention(percent float64, convention string) (Rate, error) {
	convention = strings.ToLower(strings.TrimSpace(convention))
	if err := validation.ValidateRateConvention(convention); err != nil {
		return 0, err
	}
	if convention == constants.RateConventionNominal {
		return FromNominalPercent(percent), nil
	}
	return FromAnnualPercent(percent), nil
}

// Factor returns the raw monthly growth factor.
func (r Rate) Factor() float64 {
	return float64(r)
}

// AnnualPercent returns the effective annual percentage, (r^12 - 1) * 100.
func (r Rate) AnnualPercent() float64 {
	return (math.Pow(float64(r), constants.MonthsPerYear) - 1) * constants.PercentageMultiplier
}

// NominalPercent returns the nominal annual percentage, (r - 1) * 1200.
func (r Rate) NominalPercent() float64 {
	return (float64(r) - 1) * constants.PercentageMultiplier * constants.MonthsPerYear
}

// String formats the rate as an effective annual percentage.
func (r Rate) String() string {
	return fmt.Sprintf("%.4f%%", r.AnnualPercent())
}
