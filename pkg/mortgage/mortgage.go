package mortgage

import (
	"fmt"

	"github.com/iwvelando/mortgage-compare/pkg/amortization"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"go.uber.org/zap"
)

// Mortgage is a single fixed-payment loan together with its fees.
type Mortgage struct {
	principal       float64
	rate            Rate
	termMonths      int
	fees            float64
	feesAddedToLoan bool
	cashback        float64
}

// Option customizes a Mortgage at construction.
type Option func(*Mortgage)

// WithCashback adds cash paid to the borrower at completion. Unlike a
// negative fee it is never borrowed against, whatever feesAddedToLoan says.
func WithCashback(amount float64) Option {
	return func(m *Mortgage) {
		m.cashback = amount
	}
}

// New builds a Mortgage. Fees may be negative to represent cashback; when
// feesAddedToLoan is true they are borrowed with the principal, otherwise
// they are paid once up front.
func New(principal float64, rate Rate, termMonths int, fees float64, feesAddedToLoan bool, opts ...Option) (Mortgage, error) {
	m := Mortgage{
		principal:       principal,
		rate:            rate,
		termMonths:      termMonths,
		fees:            fees,
		feesAddedToLoan: feesAddedToLoan,
	}
	for _, opt := range opts {
		opt(&m)
	}

	const op = "mortgage.New"
	if err := validation.ValidatePositive(op, "principal", principal); err != nil {
		return Mortgage{}, err
	}
	if err := validation.ValidatePositive(op, "rate", rate.Factor()); err != nil {
		return Mortgage{}, err
	}
	if err := validation.ValidateMonths(op, "termMonths", termMonths); err != nil {
		return Mortgage{}, err
	}
	if err := validation.ValidateFinite(op, "fees", fees); err != nil {
		return Mortgage{}, err
	}
	if err := validation.ValidateFinite(op, "cashback", m.cashback); err != nil {
		return Mortgage{}, err
	}
	if m.cashback < 0 {
		return Mortgage{}, validation.InvalidInput(op, "cashback", m.cashback, "cannot be negative, use fees instead")
	}
	if m.EffectivePrincipal() <= 0 {
		return Mortgage{}, validation.InvalidInput(op, "fees", fees, "fees added to the loan leave nothing to borrow")
	}

	return m, nil
}

// Principal returns the amount borrowed before fees.
func (m Mortgage) Principal() float64 { return m.principal }

// Rate returns the monthly growth factor.
func (m Mortgage) Rate() Rate { return m.rate }

// TermMonths returns the number of monthly payments.
func (m Mortgage) TermMonths() int { return m.termMonths }

// Fees returns the signed fees; negative values are cashback.
func (m Mortgage) Fees() float64 { return m.fees }

// FeesAddedToLoan reports whether fees are borrowed rather than paid up front.
func (m Mortgage) FeesAddedToLoan() bool { return m.feesAddedToLoan }

// Cashback returns the cash received at completion.
func (m Mortgage) Cashback() float64 { return m.cashback }

// Months returns the term, the furthest month the mortgage can be queried for.
func (m Mortgage) Months() int { return m.termMonths }

// EffectivePrincipal returns the amount amortized: principal plus fees when
// they are added to the loan, otherwise just the principal.
func (m Mortgage) EffectivePrincipal() float64 {
	if m.feesAddedToLoan {
		return m.principal + m.fees
	}
	return m.principal
}

// UpfrontCost returns what the borrower pays at month 0: fees that were not
// borrowed, less any cashback.
func (m Mortgage) UpfrontCost() float64 {
	upfront := -m.cashback
	if !m.feesAddedToLoan {
		upfront += m.fees
	}
	return upfront
}

// MonthlyPayment returns the fixed repayment. It fails only for a Mortgage
// that did not come from New, such as the zero value.
func (m Mortgage) MonthlyPayment() (float64, error) {
	payment, err := amortization.MonthlyPayment(m.EffectivePrincipal(), m.rate.Factor(), m.termMonths)
	if err != nil {
		return 0, fmt.Errorf("failed to compute monthly payment: %w", err)
	}
	return payment, nil
}

// BalanceAfter returns the outstanding balance after months payments. The
// balance at the end of the term is exactly zero.
func (m Mortgage) BalanceAfter(months int) (float64, error) {
	if err := validation.ValidateHorizon("mortgage.BalanceAfter", months, m.termMonths); err != nil {
		return 0, err
	}
	payment, err := m.MonthlyPayment()
	if err != nil {
		return 0, err
	}
	if months == m.termMonths {
		return 0, nil
	}
	return amortization.Balance(m.EffectivePrincipal(), m.rate.Factor(), payment, months)
}

// BalanceAt is BalanceAfter under the Instrument name.
func (m Mortgage) BalanceAt(months int) (float64, error) {
	return m.BalanceAfter(months)
}

// TotalCost returns everything paid after months payments: the payments
// themselves plus the upfront cost, counted once at month 0.
func (m Mortgage) TotalCost(months int) (float64, error) {
	if err := validation.ValidateHorizon("mortgage.TotalCost", months, m.termMonths); err != nil {
		return 0, err
	}
	payment, err := m.MonthlyPayment()
	if err != nil {
		return 0, err
	}
	return float64(months)*payment + m.UpfrontCost(), nil
}

// CashFlows returns the upfront cost, the monthly payments and the closing
// balance for the first months of the mortgage.
func (m Mortgage) CashFlows(months int) (CashFlows, error) {
	balance, err := m.BalanceAfter(months)
	if err != nil {
		return CashFlows{}, err
	}

	payment, err := m.MonthlyPayment()
	if err != nil {
		return CashFlows{}, err
	}
	payments := make([]float64, months)
	for i := range payments {
		payments[i] = payment
	}

	return CashFlows{
		Upfront:  m.UpfrontCost(),
		Payments: payments,
		Balance:  balance,
	}, nil
}

// Schedule returns the month-by-month amortization of the effective
// principal. startDate is an optional YYYY-MM label for the first payment.
func (m Mortgage) Schedule(logger *zap.Logger, name, startDate string) ([]amortization.Payment, error) {
	generator := amortization.NewScheduleGenerator(logger)
	schedule, err := generator.GenerateSchedule(amortization.LoanConfig{
		Name:      name,
		StartDate: startDate,
		Principal: m.EffectivePrincipal(),
		Rate:      m.rate.Factor(),
		Term:      m.termMonths,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}
	return schedule, nil
}
