// Package amortization provides the annuity formulas behind fixed-payment
// loans and a month-by-month schedule generator.
//
// Rates are per-period growth factors: a monthly rate of 1.005 means the
// balance grows by 0.5% before each payment is taken off.
package amortization

import (
	"fmt"
	"math"

	"github.com/iwvelando/mortgage-compare/pkg/datetime"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"go.uber.org/zap"
)

// Payment holds the values for a given payment.
type Payment struct {
	Month              int
	Date               string
	Payment            float64
	Principal          float64
	Interest           float64
	RemainingPrincipal float64
}

// GeometricSum returns the sum of rate^i for i in [0, periods).
func GeometricSum(rate float64, periods int) float64 {
	if periods <= 0 {
		return 0
	}
	if rate == 1 {
		return float64(periods)
	}
	// rate^n - 1 computed as expm1(n*log1p(rate-1)) keeps precision for
	// rates very close to 1.
	growth := math.Expm1(float64(periods) * math.Log1p(rate-1))
	return growth / (rate - 1)
}

// MonthlyPayment calculates the fixed repayment that brings principal to
// exactly zero after periods payments, with interest applied before each
// payment: p = L * r^N / sum(r^i, i < N).
func MonthlyPayment(principal, rate float64, periods int) (float64, error) {
	if err := validateLoan("amortization.MonthlyPayment", principal, rate); err != nil {
		return 0, err
	}
	if err := validation.ValidateMonths("amortization.MonthlyPayment", "periods", periods); err != nil {
		return 0, err
	}

	if rate == 1 {
		// For zero interest, simply divide the principal by term
		return principal / float64(periods), nil
	}

	return principal * math.Pow(rate, float64(periods)) / GeometricSum(rate, periods), nil
}

// Balance returns the outstanding balance after months payments of payment:
// B(k) = L * r^k - p * sum(r^i, i < k).
func Balance(principal, rate, payment float64, months int) (float64, error) {
	if err := validateLoan("amortization.Balance", principal, rate); err != nil {
		return 0, err
	}
	if months < 0 {
		return 0, validation.OutOfRange("amortization.Balance", "months", float64(months), "cannot be negative")
	}
	if months == 0 {
		return principal, nil
	}
	return principal*math.Pow(rate, float64(months)) - payment*GeometricSum(rate, months), nil
}

// InterestPayment calculates the interest charged on a balance for one period.
func InterestPayment(balance, rate float64) float64 {
	return balance * (rate - 1)
}

func validateLoan(op string, principal, rate float64) error {
	if err := validation.ValidatePositive(op, "principal", principal); err != nil {
		return err
	}
	return validation.ValidatePositive(op, "rate", rate)
}

// LoanConfig represents the parameters a schedule is generated from.
type LoanConfig struct {
	Name      string
	StartDate string // optional, YYYY-MM of the first payment
	Principal float64
	Rate      float64
	Term      int
}

// ScheduleGenerator provides utilities for generating loan amortization schedules
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// GenerateSchedule creates a complete amortization schedule for a loan. The
// final payment absorbs floating point residue so the schedule ends at zero.
func (g *ScheduleGenerator) GenerateSchedule(loan LoanConfig) ([]Payment, error) {
	monthlyPayment, err := MonthlyPayment(loan.Principal, loan.Rate, loan.Term)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate payment for loan %s: %w", loan.Name, err)
	}

	g.logger.Debug(fmt.Sprintf("generating %d month schedule for loan %s with payment %.2f",
		loan.Term, loan.Name, monthlyPayment),
		zap.String("op", "amortization.GenerateSchedule"),
	)

	schedule := make([]Payment, 0, loan.Term)
	remaining := loan.Principal
	for month := 1; month <= loan.Term; month++ {
		var current Payment
		current.Month = month

		if loan.StartDate != "" {
			current.Date, err = datetime.AddMonths(loan.StartDate, month-1)
			if err != nil {
				return nil, fmt.Errorf("invalid start date for loan %s: %w", loan.Name, err)
			}
		}

		current.Interest = InterestPayment(remaining, loan.Rate)
		if month == loan.Term {
			// We will get machine error otherwise so just settle the remainder.
			current.Principal = remaining
			current.Payment = current.Principal + current.Interest
			current.RemainingPrincipal = 0
		} else {
			current.Payment = monthlyPayment
			current.Principal = monthlyPayment - current.Interest
			current.RemainingPrincipal = remaining - current.Principal
		}

		remaining = current.RemainingPrincipal
		schedule = append(schedule, current)
	}

	return schedule, nil
}
