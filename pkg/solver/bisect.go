package solver

import (
	"fmt"
	"math"

	"github.com/iwvelando/mortgage-compare/pkg/validation"
)

// Func is a function whose root is searched for. Evaluation errors abort the
// search.
type Func func(x float64) (float64, error)

// Root is the outcome of a bisection search.
type Root struct {
	Value      float64 `json:"value"`
	Residual   float64 `json:"residual"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

// Bisect searches [lower, upper] for x with |f(x)| < tolerance. It stops
// early when the bracket can no longer be halved in floating point, and
// returns the best point found with Converged false once maxIterations is
// spent. A bracket whose ends share a sign fails with NoRootFound.
func Bisect(f Func, lower, upper, tolerance float64, maxIterations int) (Root, error) {
	return bisect(f, lower, upper, tolerance, maxIterations, nil)
}

type observer func(iteration int, x, fx float64)

func bisect(f Func, lower, upper, tolerance float64, maxIterations int, observe observer) (Root, error) {
	const op = "solver.Bisect"
	if !(lower < upper) {
		return Root{}, validation.InvalidInput(op, "upper", upper, fmt.Sprintf("must be above the lower bound %g", lower))
	}
	if err := validation.ValidatePositive(op, "tolerance", tolerance); err != nil {
		return Root{}, err
	}
	if err := validation.ValidateMonths(op, "maxIterations", maxIterations); err != nil {
		return Root{}, err
	}

	fLower, err := f(lower)
	if err != nil {
		return Root{}, fmt.Errorf("failed to evaluate lower bound %g: %w", lower, err)
	}
	if math.Abs(fLower) < tolerance {
		return Root{Value: lower, Residual: fLower, Converged: true}, nil
	}
	fUpper, err := f(upper)
	if err != nil {
		return Root{}, fmt.Errorf("failed to evaluate upper bound %g: %w", upper, err)
	}
	if math.Abs(fUpper) < tolerance {
		return Root{Value: upper, Residual: fUpper, Converged: true}, nil
	}
	if math.Signbit(fLower) == math.Signbit(fUpper) {
		return Root{}, validation.NoRootFound(op,
			fmt.Sprintf("f(%g)=%g and f(%g)=%g do not bracket a root", lower, fLower, upper, fUpper))
	}

	best := Root{Value: lower, Residual: fLower}
	if math.Abs(fUpper) < math.Abs(fLower) {
		best = Root{Value: upper, Residual: fUpper}
	}

	for best.Iterations < maxIterations {
		mid := lower + (upper-lower)/2
		if mid == lower || mid == upper {
			// Bracket is as narrow as floating point allows.
			best.Converged = true
			return best, nil
		}

		fMid, err := f(mid)
		if err != nil {
			return Root{}, fmt.Errorf("failed to evaluate %g: %w", mid, err)
		}
		best.Iterations++
		if observe != nil {
			observe(best.Iterations, mid, fMid)
		}

		if math.Abs(fMid) <= math.Abs(best.Residual) {
			best.Value = mid
			best.Residual = fMid
		}
		if math.Abs(fMid) < tolerance {
			best.Converged = true
			return best, nil
		}

		if math.Signbit(fMid) == math.Signbit(fLower) {
			lower, fLower = mid, fMid
		} else {
			upper = mid
		}
	}

	return best, nil
}
