// Package datetime labels schedule months.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
)

// ParseMonth parses a YYYY-MM month as the first instant of that month in UTC.
func ParseMonth(date string) (time.Time, error) {
	t, err := time.Parse(constants.DateTimeLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected date in %s format, got %q", constants.DateTimeLayout, date)
	}
	return t, nil
}

// AddMonths returns the YYYY-MM label of the month that is months after date.
func AddMonths(date string, months int) (string, error) {
	t, err := ParseMonth(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, months, 0).Format(constants.DateTimeLayout), nil
}
