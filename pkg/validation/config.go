// Package validation provides input validation, the calculation error kinds
// and configuration warnings.
package validation

import (
	"fmt"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/mathutil"
)

// ValidateLoanToValue warns when the amount borrowed exceeds the configured
// loan-to-value ceiling. A zero house value disables the check.
func ValidateLoanToValue(offerName string, principal, houseValue float64) string {
	if houseValue <= 0 {
		return ""
	}
	ltv := mathutil.CalculatePercentage(principal, houseValue)
	if ltv > constants.MaxLoanToValuePercent {
		return fmt.Sprintf("Offer '%s' borrows %.2f%% of the house value (%.2f > %.2f)",
			offerName, ltv, principal, houseValue)
	}
	return ""
}

// ValidateHorizonLength warns when an offer's comparison horizon is longer
// than the months its segments cover.
func ValidateHorizonLength(offerName string, horizonMonths, lengthMonths int) string {
	if horizonMonths > lengthMonths {
		return fmt.Sprintf("Offer '%s' horizon of %d months exceeds its %d months of segments - horizon will be capped",
			offerName, horizonMonths, lengthMonths)
	}
	return ""
}

// ConfigValidator collects the configuration facts needed for warnings.
type ConfigValidator struct {
	Common CommonConfig
	Offers []OfferConfig
}

// CommonConfig holds the shared comparison parameters.
type CommonConfig struct {
	HouseValue float64
	Principal  float64
	Benchmark  string
}

// OfferConfig holds the per-offer values that are checked.
type OfferConfig struct {
	Name          string
	Active        bool
	Principal     float64
	HorizonMonths int
	LengthMonths  int
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	seen := make(map[string]bool)
	benchmarkFound := false
	for _, offer := range cv.Offers {
		if seen[offer.Name] {
			warnings = append(warnings, fmt.Sprintf("Offer name '%s' is used more than once", offer.Name))
		}
		seen[offer.Name] = true

		if !offer.Active {
			continue
		}
		if offer.Name == cv.Common.Benchmark {
			benchmarkFound = true
		}

		principal := offer.Principal
		if principal == 0 {
			principal = cv.Common.Principal
		}
		if warning := ValidateLoanToValue(offer.Name, principal, cv.Common.HouseValue); warning != "" {
			warnings = append(warnings, warning)
		}
		if offer.HorizonMonths > 0 {
			if warning := ValidateHorizonLength(offer.Name, offer.HorizonMonths, offer.LengthMonths); warning != "" {
				warnings = append(warnings, warning)
			}
		}
	}

	if cv.Common.Benchmark != "" && !benchmarkFound {
		warnings = append(warnings, fmt.Sprintf("Benchmark offer '%s' is not an active offer - break-even fees will be skipped",
			cv.Common.Benchmark))
	}

	return warnings
}
