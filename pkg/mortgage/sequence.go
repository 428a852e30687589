package mortgage

import (
	"fmt"

	"github.com/iwvelando/mortgage-compare/pkg/validation"
)

// SegmentSpec describes one mortgage in a Sequence. Its principal is not
// given: it is the balance left by the segment before it.
type SegmentSpec struct {
	Rate            Rate
	TermMonths      int // 0 after the first segment means the remaining term of the previous one
	Fees            float64
	FeesAddedToLoan bool
	Cashback        float64
	Duration        int // months the segment is active, at most TermMonths
}

// ResolvedSegment is a segment with its principal filled in.
type ResolvedSegment struct {
	Mortgage Mortgage
	Start    int // months elapsed in the sequence before this segment begins
	Duration int
}

// End returns the sequence month at which the segment stops being active.
func (r ResolvedSegment) End() int {
	return r.Start + r.Duration
}

// Sequence chains mortgages end to end, e.g. an introductory fixed rate
// followed by a standard variable rate, or a series of remortgages.
type Sequence struct {
	principal float64
	segments  []SegmentSpec
}

// NewSequence validates the segments and returns a Sequence borrowing
// principal under the first one.
func NewSequence(principal float64, segments ...SegmentSpec) (Sequence, error) {
	const op = "mortgage.NewSequence"
	if len(segments) == 0 {
		return Sequence{}, validation.InvalidInput(op, "segments", 0, "at least one segment is required")
	}
	for i, seg := range segments {
		if err := validation.ValidateMonths(op, fmt.Sprintf("segments[%d].duration", i), seg.Duration); err != nil {
			return Sequence{}, err
		}
	}

	s := Sequence{
		principal: principal,
		segments:  append([]SegmentSpec(nil), segments...),
	}
	// Resolving once surfaces invalid rates, terms and early payoff now
	// rather than on the first query.
	if _, err := s.Resolve(); err != nil {
		return Sequence{}, err
	}
	return s, nil
}

// Principal returns the amount borrowed under the first segment, before fees.
func (s Sequence) Principal() float64 { return s.principal }

// Segments returns a copy of the segment specifications.
func (s Sequence) Segments() []SegmentSpec {
	return append([]SegmentSpec(nil), s.segments...)
}

// Months returns the sum of all segment durations.
func (s Sequence) Months() int {
	total := 0
	for _, seg := range s.segments {
		total += seg.Duration
	}
	return total
}

// Resolve walks the segments in order, giving each one the balance left by
// the previous segment at the end of its duration.
func (s Sequence) Resolve() ([]ResolvedSegment, error) {
	const op = "mortgage.Resolve"
	resolved := make([]ResolvedSegment, 0, len(s.segments))

	principal := s.principal
	start := 0
	for i, seg := range s.segments {
		term := seg.TermMonths
		if term == 0 && i > 0 {
			previous := resolved[i-1]
			term = previous.Mortgage.TermMonths() - previous.Duration
		}

		m, err := New(principal, seg.Rate, term, seg.Fees, seg.FeesAddedToLoan, WithCashback(seg.Cashback))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if seg.Duration > term {
			return nil, fmt.Errorf("segment %d: %w", i,
				validation.InvalidInput(op, "duration", float64(seg.Duration), fmt.Sprintf("exceeds the %d month term", term)))
		}

		resolved = append(resolved, ResolvedSegment{Mortgage: m, Start: start, Duration: seg.Duration})

		principal, err = m.BalanceAfter(seg.Duration)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		start += seg.Duration
	}

	return resolved, nil
}

// activeIndex returns the segment in force after months payments. At a
// boundary the earlier segment is active: the remortgage happens just after.
func activeIndex(resolved []ResolvedSegment, months int) int {
	for i, seg := range resolved {
		if months <= seg.End() {
			return i
		}
	}
	return len(resolved) - 1
}

// TotalCost returns everything paid after months payments. Each segment's
// upfront cost is paid once, when it starts, and every elapsed month costs
// one full payment of the segment active in that month.
func (s Sequence) TotalCost(months int) (float64, error) {
	if err := validation.ValidateHorizon("mortgage.Sequence.TotalCost", months, s.Months()); err != nil {
		return 0, err
	}
	resolved, err := s.Resolve()
	if err != nil {
		return 0, err
	}

	total := 0.0
	for i, seg := range resolved {
		if i > 0 && months <= seg.Start {
			break
		}
		payment, err := seg.Mortgage.MonthlyPayment()
		if err != nil {
			return 0, err
		}
		elapsed := min(months-seg.Start, seg.Duration)
		total += seg.Mortgage.UpfrontCost() + float64(elapsed)*payment
	}
	return total, nil
}

// BalanceAt returns the outstanding balance after months payments, taken from
// the segment active at that point.
func (s Sequence) BalanceAt(months int) (float64, error) {
	if err := validation.ValidateHorizon("mortgage.Sequence.BalanceAt", months, s.Months()); err != nil {
		return 0, err
	}
	resolved, err := s.Resolve()
	if err != nil {
		return 0, err
	}

	active := resolved[activeIndex(resolved, months)]
	return active.Mortgage.BalanceAfter(months - active.Start)
}

// CashFlows returns the month-by-month payments. Upfront costs of later
// segments are folded into the month in which they start.
func (s Sequence) CashFlows(months int) (CashFlows, error) {
	balance, err := s.BalanceAt(months)
	if err != nil {
		return CashFlows{}, err
	}
	resolved, err := s.Resolve()
	if err != nil {
		return CashFlows{}, err
	}

	flows := CashFlows{
		Upfront:  resolved[0].Mortgage.UpfrontCost(),
		Payments: make([]float64, months),
		Balance:  balance,
	}
	for i, seg := range resolved {
		if i > 0 && months <= seg.Start {
			break
		}
		if i > 0 {
			flows.Payments[seg.Start-1] += seg.Mortgage.UpfrontCost()
		}
		payment, err := seg.Mortgage.MonthlyPayment()
		if err != nil {
			return CashFlows{}, err
		}
		elapsed := min(months-seg.Start, seg.Duration)
		for m := 0; m < elapsed; m++ {
			flows.Payments[seg.Start+m] += payment
		}
	}
	return flows, nil
}
