package config

import (
	"fmt"

	"github.com/iwvelando/mortgage-compare/pkg/amortization"
	"github.com/iwvelando/mortgage-compare/pkg/datetime"
	"github.com/iwvelando/mortgage-compare/pkg/mortgage"
	"go.uber.org/zap"
)

// Offer is one mortgage product, or a plan of several, to compare.
type Offer struct {
	Name          string    `yaml:"name" json:"name"`
	Active        bool      `yaml:"active" json:"active"`
	Principal     float64   `yaml:"principal,omitempty" json:"principal,omitempty"`         // overrides common.principal
	HorizonMonths int       `yaml:"horizonMonths,omitempty" json:"horizonMonths,omitempty"` // overrides common.horizonMonths
	Segments      []Segment `yaml:"segments" json:"segments"`
}

// Segment is one mortgage within an offer. Rates are annual percentages
// interpreted with common.rateConvention.
type Segment struct {
	Rate            float64 `yaml:"rate" json:"rate"`
	TermMonths      int     `yaml:"termMonths,omitempty" json:"termMonths,omitempty"` // 0: common term first, remaining term after
	Fees            float64 `yaml:"fees,omitempty" json:"fees,omitempty"`
	FeesAddedToLoan bool    `yaml:"feesAddedToLoan,omitempty" json:"feesAddedToLoan,omitempty"`
	Cashback        float64 `yaml:"cashback,omitempty" json:"cashback,omitempty"`
	DurationMonths  int     `yaml:"durationMonths,omitempty" json:"durationMonths,omitempty"` // 0 on the last segment: rest of its term
}

// PrincipalOr returns the offer's own principal, falling back to the shared one.
func (o Offer) PrincipalOr(common Common) float64 {
	if o.Principal != 0 {
		return o.Principal
	}
	return common.Principal
}

// SegmentSpecs converts the configured segments into mortgage segments,
// filling in default terms and the duration of the last segment.
func (o Offer) SegmentSpecs(common Common) ([]mortgage.SegmentSpec, error) {
	specs := make([]mortgage.SegmentSpec, 0, len(o.Segments))
	remaining := common.TermMonths

	for i, seg := range o.Segments {
		rate, err := mortgage.FromConvention(seg.Rate, common.RateConvention)
		if err != nil {
			return nil, fmt.Errorf("offer %s segment %d: %w", o.Name, i, err)
		}

		term := seg.TermMonths
		if term == 0 && i == 0 {
			term = common.TermMonths
		}
		effectiveTerm := term
		if term == 0 {
			effectiveTerm = remaining
		}

		duration := seg.DurationMonths
		if duration == 0 && i == len(o.Segments)-1 {
			duration = effectiveTerm
		}

		specs = append(specs, mortgage.SegmentSpec{
			Rate:            rate,
			TermMonths:      term,
			Fees:            seg.Fees,
			FeesAddedToLoan: seg.FeesAddedToLoan,
			Cashback:        seg.Cashback,
			Duration:        duration,
		})
		remaining = effectiveTerm - duration
	}

	return specs, nil
}

// Build returns the instrument described by the offer: a Mortgage when it is
// a single segment held to term, otherwise a Sequence.
func (o Offer) Build(common Common) (mortgage.Instrument, error) {
	return o.BuildWithExtraFee(common, 0)
}

// BuildWithExtraFee is Build with extra added to the first segment's fees.
func (o Offer) BuildWithExtraFee(common Common, extra float64) (mortgage.Instrument, error) {
	specs, err := o.SegmentSpecs(common)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("offer %s has no segments", o.Name)
	}
	specs[0].Fees += extra

	principal := o.PrincipalOr(common)
	if len(specs) == 1 && specs[0].Duration == specs[0].TermMonths {
		only := specs[0]
		m, err := mortgage.New(principal, only.Rate, only.TermMonths, only.Fees, only.FeesAddedToLoan,
			mortgage.WithCashback(only.Cashback))
		if err != nil {
			return nil, fmt.Errorf("offer %s: %w", o.Name, err)
		}
		return m, nil
	}

	seq, err := mortgage.NewSequence(principal, specs...)
	if err != nil {
		return nil, fmt.Errorf("offer %s: %w", o.Name, err)
	}
	return seq, nil
}

// LengthMonths returns the months covered by the offer's segments, or 0 when
// they cannot be resolved.
func (o Offer) LengthMonths(common Common) int {
	specs, err := o.SegmentSpecs(common)
	if err != nil {
		return 0
	}
	total := 0
	for _, seg := range specs {
		total += seg.Duration
	}
	return total
}

// Horizon returns the months the offer is compared over: its own horizon,
// else the shared one, else its full length, never more than months.
func (o Offer) Horizon(common Common, months int) int {
	horizon := o.HorizonMonths
	if horizon == 0 {
		horizon = common.HorizonMonths
	}
	if horizon <= 0 || horizon > months {
		horizon = months
	}
	return horizon
}

// Schedule computes the month-by-month amortization of the offer, switching
// segment at each remortgage. Dates are filled in when common.startDate is set.
func (o Offer) Schedule(logger *zap.Logger, common Common) ([]amortization.Payment, error) {
	instrument, err := o.Build(common)
	if err != nil {
		return nil, err
	}

	switch inst := instrument.(type) {
	case mortgage.Mortgage:
		return inst.Schedule(logger, o.Name, common.StartDate)
	case mortgage.Sequence:
		resolved, err := inst.Resolve()
		if err != nil {
			return nil, fmt.Errorf("offer %s: %w", o.Name, err)
		}

		var schedule []amortization.Payment
		for i, seg := range resolved {
			startDate := ""
			if common.StartDate != "" {
				startDate, err = datetime.AddMonths(common.StartDate, seg.Start)
				if err != nil {
					return nil, fmt.Errorf("invalid start date for offer %s: %w", o.Name, err)
				}
			}

			segmentSchedule, err := seg.Mortgage.Schedule(logger, fmt.Sprintf("%s segment %d", o.Name, i), startDate)
			if err != nil {
				return nil, err
			}
			for _, payment := range segmentSchedule[:seg.Duration] {
				payment.Month += seg.Start
				schedule = append(schedule, payment)
			}
		}
		return schedule, nil
	default:
		return nil, fmt.Errorf("offer %s: unsupported instrument %T", o.Name, instrument)
	}
}
