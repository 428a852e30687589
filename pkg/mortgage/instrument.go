// Package mortgage models fixed-payment mortgages with fees and cashback,
// and sequences of mortgages where each segment refinances the balance left
// by the previous one.
//
// Every type in this package is an immutable value. Repayments, balances and
// costs are recomputed from the stored terms on each call.
package mortgage

// Instrument is what the effective rate solver and the comparison report
// need from either a single Mortgage or a Sequence.
type Instrument interface {
	// Principal is the amount originally borrowed, before any fees.
	Principal() float64
	// Months is the number of months the instrument can be queried for.
	Months() int
	// TotalCost is everything the borrower has paid after months payments.
	TotalCost(months int) (float64, error)
	// BalanceAt is the amount still owed after months payments.
	BalanceAt(months int) (float64, error)
	// CashFlows breaks TotalCost and BalanceAt down by month.
	CashFlows(months int) (CashFlows, error)
}

// CashFlows describes what the borrower pays over a horizon.
type CashFlows struct {
	// Upfront is paid at month 0; negative when cashback exceeds fees.
	Upfront float64
	// Payments[i] is paid at the end of month i+1.
	Payments []float64
	// Balance is still owed after the last payment.
	Balance float64
}

// Total returns the upfront amount plus every payment.
func (c CashFlows) Total() float64 {
	total := c.Upfront
	for _, payment := range c.Payments {
		total += payment
	}
	return total
}

var (
	_ Instrument = Mortgage{}
	_ Instrument = Sequence{}
)
