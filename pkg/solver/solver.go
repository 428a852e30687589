// Package solver finds the single flat monthly rate that reproduces the cost
// of a mortgage, or a sequence of mortgages, once fees, cashback and rate
// changes are taken into account.
package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/mortgage-compare/pkg/amortization"
	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/mortgage"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"go.uber.org/zap"
)

// Config controls the effective rate search.
type Config struct {
	// Method is SolverMethodBalance, SolverMethodLevel or SolverMethodCashFlow.
	Method        string  `yaml:"method" json:"method" mapstructure:"method"`
	LowerBound    float64 `yaml:"lowerBound" json:"lowerBound" mapstructure:"lowerBound"`
	UpperBound    float64 `yaml:"upperBound" json:"upperBound" mapstructure:"upperBound"`
	Tolerance     float64 `yaml:"tolerance" json:"tolerance" mapstructure:"tolerance"`
	MaxIterations int     `yaml:"maxIterations" json:"maxIterations" mapstructure:"maxIterations"`
}

// DefaultConfig returns the balance method searching monthly factors in [1, 2].
func DefaultConfig() Config {
	return Config{
		Method:        constants.SolverMethodBalance,
		LowerBound:    constants.DefaultSolverLowerBound,
		UpperBound:    constants.DefaultSolverUpperBound,
		Tolerance:     constants.DefaultSolverTolerance,
		MaxIterations: constants.DefaultSolverMaxIterations,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Method == "" {
		c.Method = defaults.Method
	}
	if c.LowerBound == 0 && c.UpperBound == 0 {
		c.LowerBound = defaults.LowerBound
		c.UpperBound = defaults.UpperBound
	}
	if c.Tolerance == 0 {
		c.Tolerance = defaults.Tolerance
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = defaults.MaxIterations
	}
	c.Method = strings.ToLower(strings.TrimSpace(c.Method))
	return c
}

// Validate checks the method name and search bounds.
func (c Config) Validate() error {
	const op = "solver.Config"
	if err := validation.ValidateSolverMethod(c.Method); err != nil {
		return err
	}
	if err := validation.ValidatePositive(op, "lowerBound", c.LowerBound); err != nil {
		return err
	}
	if c.UpperBound <= c.LowerBound {
		return validation.InvalidInput(op, "upperBound", c.UpperBound, fmt.Sprintf("must be above lowerBound %g", c.LowerBound))
	}
	if err := validation.ValidatePositive(op, "tolerance", c.Tolerance); err != nil {
		return err
	}
	return validation.ValidateMonths(op, "maxIterations", c.MaxIterations)
}

// Result is the effective rate of an instrument over a horizon.
type Result struct {
	Rate       mortgage.Rate `json:"rate"`
	Method     string        `json:"method"`
	Months     int           `json:"months"`
	Iterations int           `json:"iterations"`
	Residual   float64       `json:"residual"`
	Converged  bool          `json:"converged"`
}

// AnnualPercent returns the effective rate as an effective annual percentage.
func (r Result) AnnualPercent() float64 {
	return r.Rate.AnnualPercent()
}

// Solver computes effective rates.
type Solver struct {
	logger *zap.Logger
	config Config
}

// New creates a Solver. Zero fields of config take their defaults.
func New(logger *zap.Logger, config Config) (*Solver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver configuration: %w", err)
	}
	return &Solver{logger: logger, config: config}, nil
}

// Config returns the configuration in use, defaults applied.
func (s *Solver) Config() Config {
	return s.config
}

// EffectiveRate solves with the default configuration and no logging.
func EffectiveRate(instrument mortgage.Instrument, months int) (Result, error) {
	s, err := New(nil, Config{})
	if err != nil {
		return Result{}, err
	}
	return s.EffectiveRate(instrument, months)
}

// EffectiveRate finds the flat monthly rate r at which borrowing the
// instrument's principal costs the same as the instrument itself over months.
//
// The balance method keeps the instrument's own payments and grows the
// principal at r, subtracting each payment, until the balance left at the
// horizon equals the instrument's real balance plus its net upfront cost. A
// loan without fees recovers its own rate at any horizon. The cash flow
// method discounts the same payments at r until they match the money
// received, which makes it the internal rate of return of the borrowing.
// The level method prices the cost to settle the instrument at the horizon
// as k level payments on the principal; it is only unbiased when k is the
// full term.
func (s *Solver) EffectiveRate(instrument mortgage.Instrument, months int) (Result, error) {
	const op = "solver.EffectiveRate"
	if err := validation.ValidateMonths(op, "months", months); err != nil {
		return Result{}, err
	}
	if err := validation.ValidateHorizon(op, months, instrument.Months()); err != nil {
		return Result{}, err
	}

	flows, err := instrument.CashFlows(months)
	if err != nil {
		return Result{}, err
	}

	var f Func
	switch s.config.Method {
	case constants.SolverMethodCashFlow:
		f = presentValueGap(instrument.Principal(), flows)
	case constants.SolverMethodLevel:
		cost, err := instrument.TotalCost(months)
		if err != nil {
			return Result{}, err
		}
		f = levelCostGap(instrument.Principal(), months, cost+flows.Balance)
	default:
		f = balanceGap(instrument.Principal(), flows)
	}

	root, err := bisect(f, s.config.LowerBound, s.config.UpperBound, s.config.Tolerance, s.config.MaxIterations,
		func(iteration int, x, fx float64) {
			s.logger.Debug("effective rate iteration",
				zap.String("op", op),
				zap.Int("iteration", iteration),
				zap.Float64("rate", x),
				zap.Float64("residual", fx),
			)
		})
	if err != nil {
		return Result{}, fmt.Errorf("failed to solve effective rate over %d months: %w", months, err)
	}

	if !root.Converged {
		s.logger.Warn(fmt.Sprintf("effective rate did not converge after %d iterations", root.Iterations),
			zap.String("op", op),
			zap.Float64("residual", root.Residual),
		)
	}

	return Result{
		Rate:       mortgage.Rate(root.Value),
		Method:     s.config.Method,
		Months:     months,
		Iterations: root.Iterations,
		Residual:   root.Residual,
		Converged:  root.Converged,
	}, nil
}

// balanceGap is the balance left after growing principal at r and paying
// the instrument's payments, less its closing balance and upfront cost.
// Cashback lowers the target and so the rate; fees raise both.
func balanceGap(principal float64, flows mortgage.CashFlows) Func {
	target := flows.Balance + flows.Upfront
	return func(r float64) (float64, error) {
		balance := principal
		for _, payment := range flows.Payments {
			balance = balance*r - payment
		}
		return balance - target, nil
	}
}

// levelCostGap is months payments on principal at r, less the actual cost.
func levelCostGap(principal float64, months int, actual float64) Func {
	return func(r float64) (float64, error) {
		payment, err := amortization.MonthlyPayment(principal, r, months)
		if err != nil {
			return 0, err
		}
		return float64(months)*payment - actual, nil
	}
}

// presentValueGap is the money received net of upfront costs, less the
// present value at r of every payment and the closing balance.
func presentValueGap(principal float64, flows mortgage.CashFlows) Func {
	return func(r float64) (float64, error) {
		if err := validation.ValidatePositive("solver.presentValueGap", "rate", r); err != nil {
			return 0, err
		}
		discount := 1.0
		present := 0.0
		for _, payment := range flows.Payments {
			discount /= r
			present += payment * discount
		}
		present += flows.Balance * discount
		return principal - flows.Upfront - present, nil
	}
}

// BreakEvenFee finds the extra fee at which the instrument returned by build
// has the same effective rate over months as target. The search covers
// [-limit, limit]; build must accept any fee in that range. An offer whose
// rate cannot be solved because its cashback is too large is treated as
// cheaper than any target.
func (s *Solver) BreakEvenFee(build func(fee float64) (mortgage.Instrument, error), months int, target mortgage.Rate, limit float64) (Root, error) {
	const op = "solver.BreakEvenFee"
	if err := validation.ValidatePositive(op, "limit", limit); err != nil {
		return Root{}, err
	}

	gap := func(fee float64) (float64, error) {
		instrument, err := build(fee)
		if err != nil {
			return 0, err
		}
		result, err := s.EffectiveRate(instrument, months)
		if errors.Is(err, validation.ErrNoRootFound) {
			return s.config.LowerBound - target.Factor(), nil
		}
		if err != nil {
			return 0, err
		}
		return result.Rate.Factor() - target.Factor(), nil
	}

	root, err := bisect(gap, -limit, limit, breakEvenTolerance, s.config.MaxIterations,
		func(iteration int, fee, rateGap float64) {
			s.logger.Debug("break-even fee iteration",
				zap.String("op", op),
				zap.Int("iteration", iteration),
				zap.Float64("fee", fee),
				zap.Float64("rateGap", rateGap),
			)
		})
	if err != nil {
		return Root{}, fmt.Errorf("failed to find break-even fee within %g: %w", limit, err)
	}
	return root, nil
}

// breakEvenTolerance is in monthly growth factor units, far below a basis point.
const breakEvenTolerance = 1e-12
