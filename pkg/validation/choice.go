package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
)

// ValidateChoice fails with InvalidInput unless value is exactly one of
// allowed. Matching is case sensitive; callers normalize first if needed.
func ValidateChoice(op, field, value string, allowed ...string) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return InvalidInput(op, "", 0, fmt.Sprintf("%s must be one of %s, got %q",
		field, strings.Join(allowed, ", "), value))
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	return ValidateChoice("validation.ValidateOutputFormat", "output format", format,
		constants.OutputFormatPretty, constants.OutputFormatCSV)
}

// ValidateSolverMethod checks the effective rate method name.
func ValidateSolverMethod(method string) error {
	return ValidateChoice("validation.ValidateSolverMethod", "solver method", method,
		constants.SolverMethodBalance, constants.SolverMethodLevel, constants.SolverMethodCashFlow)
}

// ValidateRateConvention checks the convention used to read configured
// percentages. The empty string selects the effective convention.
func ValidateRateConvention(convention string) error {
	return ValidateChoice("validation.ValidateRateConvention", "rate convention", convention,
		"", constants.RateConventionEffective, constants.RateConventionNominal)
}
