// Package format renders money and rates for reports.
package format

import (
	"strings"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/shopspring/decimal"
)

// Currency returns a currency string with a pound sign and thousands separators (e.g., "-£1,234.56").
func Currency(amount float64) string {
	value := Cents(amount)
	if value.IsNegative() {
		return "-£" + group(value.Abs().StringFixed(constants.CurrencyPlaces))
	}
	return "£" + group(value.StringFixed(constants.CurrencyPlaces))
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	value := Cents(amount)
	if value.IsNegative() {
		return "-" + group(value.Abs().StringFixed(constants.CurrencyPlaces))
	}
	return group(value.StringFixed(constants.CurrencyPlaces))
}

// Plain returns the amount rounded to pence with no separators, for CSV.
func Plain(amount float64) string {
	return Cents(amount).StringFixed(constants.CurrencyPlaces)
}

// Cents rounds amount half away from zero to whole pence.
func Cents(amount float64) decimal.Decimal {
	rounded := decimal.NewFromFloat(amount).Round(constants.CurrencyPlaces)
	if rounded.IsZero() {
		// Drops the sign of values like -0.001.
		return decimal.Zero
	}
	return rounded
}

// Percent formats a percentage with the given number of decimal places (e.g., "1.7592%").
func Percent(value float64, places int32) string {
	return decimal.NewFromFloat(value).StringFixed(places) + "%"
}

func group(formatted string) string {
	intPart, decPart, _ := strings.Cut(formatted, ".")
	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}
	if decPart == "" {
		return intPart
	}
	return intPart + "." + decPart
}
