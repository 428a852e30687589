// Package compare evaluates every active offer in a configuration and ranks
// them by effective rate.
package compare

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/iwvelando/mortgage-compare/internal/config"
	"github.com/iwvelando/mortgage-compare/internal/tracing"
	"github.com/iwvelando/mortgage-compare/pkg/mathutil"
	"github.com/iwvelando/mortgage-compare/pkg/mortgage"
	"github.com/iwvelando/mortgage-compare/pkg/solver"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Segment describes one resolved mortgage within an offer.
type Segment struct {
	Index           int     `json:"index"`
	RatePercent     float64 `json:"ratePercent"`
	StartMonth      int     `json:"startMonth"`
	DurationMonths  int     `json:"durationMonths"`
	TermMonths      int     `json:"termMonths"`
	Principal       float64 `json:"principal"`
	Fees            float64 `json:"fees"`
	FeesAddedToLoan bool    `json:"feesAddedToLoan"`
	Cashback        float64 `json:"cashback"`
	MonthlyPayment  float64 `json:"monthlyPayment"`
	UpfrontCost     float64 `json:"upfrontCost"`
}

// Result holds the evaluation of a single offer over its horizon.
type Result struct {
	Name               string        `json:"name"`
	HouseValue         float64       `json:"houseValue,omitempty"`
	Principal          float64       `json:"principal"`
	LoanToValuePercent float64       `json:"loanToValuePercent,omitempty"`
	Months             int           `json:"months"`
	HorizonMonths      int           `json:"horizonMonths"`
	Segments           []Segment     `json:"segments"`
	TotalPaid          float64       `json:"totalPaid"`
	RemainingBalance   float64       `json:"remainingBalance"`
	RemainingRatio     float64       `json:"remainingRatio"`
	TotalPaidRatio     float64       `json:"totalPaidRatio"`
	EffectiveRate      solver.Result `json:"effectiveRate"`
	EffectivePercent   float64       `json:"effectivePercent"`
	BreakEvenFee       *float64      `json:"breakEvenFee,omitempty"`
	Rank               int           `json:"rank"`
	Notes              []string      `json:"notes,omitempty"`
}

// Comparison is the outcome of comparing all active offers.
type Comparison struct {
	Results   []Result `json:"results"`
	Method    string   `json:"method"`
	Benchmark string   `json:"benchmark,omitempty"`
	// HorizonMonths is the horizon shared by most offers.
	HorizonMonths int `json:"horizonMonths,omitempty"`
}

// Best returns the lowest ranked result.
func (c *Comparison) Best() (Result, bool) {
	for _, result := range c.Results {
		if result.Rank == 1 {
			return result, true
		}
	}
	return Result{}, false
}

// Compare evaluates the active offers concurrently. Results keep the order
// of the configuration; Rank orders them by effective rate.
func Compare(ctx context.Context, logger *zap.Logger, conf config.Configuration) (*Comparison, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, span := tracing.Tracer().Start(ctx, "compare.Compare")
	defer span.End()

	s, err := solver.New(logger, conf.Solver)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid solver configuration")
		return nil, err
	}

	offers := conf.ActiveOffers()
	results := make([]Result, len(offers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, offer := range offers {
		g.Go(func() error {
			result, err := evaluate(gctx, logger, s, conf.Common, offer)
			if err != nil {
				logger.Warn(fmt.Sprintf("failed to evaluate offer %s", offer.Name),
					zap.String("op", "compare.Compare"),
					zap.Error(err),
				)
				return fmt.Errorf("offer %s: %w", offer.Name, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "offer evaluation failed")
		return nil, err
	}

	comparison := &Comparison{
		Results:       results,
		Method:        s.Config().Method,
		HorizonMonths: sharedHorizon(results),
	}
	rank(comparison.Results)
	noteHorizons(comparison.Results, comparison.HorizonMonths)

	if conf.Common.Benchmark != "" {
		if err := breakEven(ctx, logger, s, conf, offers, comparison); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "break-even search failed")
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("offers", len(results)))
	return comparison, nil
}

func evaluate(ctx context.Context, logger *zap.Logger, s *solver.Solver, common config.Common, offer config.Offer) (Result, error) {
	_, span := tracing.Tracer().Start(ctx, "compare.evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("offer", offer.Name))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	instrument, err := offer.Build(common)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	horizon := offer.Horizon(common, instrument.Months())
	totalPaid, err := instrument.TotalCost(horizon)
	if err != nil {
		return Result{}, err
	}
	balance, err := instrument.BalanceAt(horizon)
	if err != nil {
		return Result{}, err
	}

	segs, err := segments(instrument)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	principal := instrument.Principal()
	result := Result{
		Name:             offer.Name,
		HouseValue:       common.HouseValue,
		Principal:        principal,
		Months:           instrument.Months(),
		HorizonMonths:    horizon,
		Segments:         segs,
		TotalPaid:        totalPaid,
		RemainingBalance: balance,
		RemainingRatio:   mathutil.Ratio(balance, principal),
		TotalPaidRatio:   mathutil.Ratio(totalPaid, principal),
	}
	if common.HouseValue > 0 {
		result.LoanToValuePercent = mathutil.CalculatePercentage(principal, common.HouseValue)
	}

	effective, err := s.EffectiveRate(instrument, horizon)
	switch {
	case errors.Is(err, validation.ErrNoRootFound):
		// Cashback can outweigh all interest; the offer is still reported.
		result.Notes = append(result.Notes, "effective rate is below zero interest")
		span.SetAttributes(attribute.Bool("rate.unsolved", true))
	case err != nil:
		span.RecordError(err)
		return Result{}, err
	default:
		result.EffectiveRate = effective
		result.EffectivePercent = effective.AnnualPercent()
		if !effective.Converged {
			result.Notes = append(result.Notes,
				fmt.Sprintf("effective rate did not converge after %d iterations", effective.Iterations))
		}
	}

	span.SetAttributes(
		attribute.Int("horizon", horizon),
		attribute.Float64("effective_percent", result.EffectivePercent),
		attribute.Int("iterations", result.EffectiveRate.Iterations),
	)
	logger.Debug(fmt.Sprintf("evaluated offer %s over %d months: effective rate %.4f%%",
		offer.Name, horizon, result.EffectivePercent),
		zap.String("op", "compare.evaluate"),
		zap.Float64("totalPaid", totalPaid),
		zap.Float64("remainingBalance", balance),
	)

	return result, nil
}

func segments(instrument mortgage.Instrument) ([]Segment, error) {
	switch inst := instrument.(type) {
	case mortgage.Mortgage:
		seg, err := segmentOf(0, inst, 0, inst.TermMonths())
		if err != nil {
			return nil, err
		}
		return []Segment{seg}, nil
	case mortgage.Sequence:
		resolved, err := inst.Resolve()
		if err != nil {
			return nil, err
		}
		out := make([]Segment, 0, len(resolved))
		for i, seg := range resolved {
			s, err := segmentOf(i, seg.Mortgage, seg.Start, seg.Duration)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, nil
}

func segmentOf(index int, m mortgage.Mortgage, start, duration int) (Segment, error) {
	payment, err := m.MonthlyPayment()
	if err != nil {
		return Segment{}, err
	}
	return Segment{
		Index:           index,
		RatePercent:     m.Rate().AnnualPercent(),
		StartMonth:      start,
		DurationMonths:  duration,
		TermMonths:      m.TermMonths(),
		Principal:       m.Principal(),
		Fees:            m.Fees(),
		FeesAddedToLoan: m.FeesAddedToLoan(),
		Cashback:        m.Cashback(),
		MonthlyPayment:  payment,
		UpfrontCost:     m.UpfrontCost(),
	}, nil
}

// rank orders results by effective rate, cheapest first. Offers whose rate
// could not be solved beat every solved one.
func rank(results []Result) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := results[order[a]], results[order[b]]
		if ra.EffectiveRate.Method == "" || rb.EffectiveRate.Method == "" {
			return ra.EffectiveRate.Method == "" && rb.EffectiveRate.Method != ""
		}
		return ra.EffectiveRate.Rate < rb.EffectiveRate.Rate
	})
	for position, index := range order {
		results[index].Rank = position + 1
	}
}

// sharedHorizon returns the horizon used by the most results, the earliest
// in configuration order on a tie.
func sharedHorizon(results []Result) int {
	counts := make(map[int]int)
	shared, best := 0, 0
	for _, result := range results {
		counts[result.HorizonMonths]++
		if counts[result.HorizonMonths] > best {
			shared, best = result.HorizonMonths, counts[result.HorizonMonths]
		}
	}
	return shared
}

// noteHorizons flags results ranked over a different horizon than the rest,
// since their effective rates cover a different period.
func noteHorizons(results []Result, shared int) {
	for i := range results {
		if results[i].HorizonMonths != shared {
			results[i].Notes = append(results[i].Notes,
				fmt.Sprintf("ranked over %d months while most offers use %d", results[i].HorizonMonths, shared))
		}
	}
}

// breakEven fills BreakEvenFee for every offer other than the benchmark: the
// extra fee that would bring its effective rate level with the benchmark's.
func breakEven(ctx context.Context, logger *zap.Logger, s *solver.Solver, conf config.Configuration, offers []config.Offer, comparison *Comparison) error {
	var benchmark *Result
	for i := range comparison.Results {
		if comparison.Results[i].Name == conf.Common.Benchmark {
			benchmark = &comparison.Results[i]
			break
		}
	}
	if benchmark == nil || benchmark.EffectiveRate.Method == "" {
		logger.Warn(fmt.Sprintf("benchmark offer %s has no effective rate, skipping break-even fees", conf.Common.Benchmark),
			zap.String("op", "compare.breakEven"),
		)
		return nil
	}
	comparison.Benchmark = benchmark.Name
	target := benchmark.EffectiveRate.Rate

	_, span := tracing.Tracer().Start(ctx, "compare.breakEven")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, offer := range offers {
		result := &comparison.Results[i]
		if result.Name == benchmark.Name {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			build := func(fee float64) (mortgage.Instrument, error) {
				return offer.BuildWithExtraFee(conf.Common, fee)
			}
			limit := result.Principal / 2
			root, err := s.BreakEvenFee(build, result.HorizonMonths, target, limit)
			if errors.Is(err, validation.ErrNoRootFound) {
				result.Notes = append(result.Notes,
					fmt.Sprintf("no fee within %.2f matches benchmark %s", limit, benchmark.Name))
				return nil
			}
			if err != nil {
				return fmt.Errorf("offer %s break-even fee: %w", offer.Name, err)
			}
			fee := root.Value
			result.BreakEvenFee = &fee
			return nil
		})
	}
	return g.Wait()
}
