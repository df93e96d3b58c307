// Package qubo builds budget-constrained quadratic objectives over integer
// decision variables. A Program is the contract handed to a solver: minimize
// q·xᵀΣx − μᵀx subject to 1ᵀx = B, with the equality relaxed into a penalty
// term for unconstrained solvers.
package qubo

import (
	"fmt"
	"math"
)

// Bounds is the inclusive integer domain of one decision variable.
// The default selection domain is {0,1}; allocation-weight variants may use
// asymmetric and negative bounds.
type Bounds struct {
	Lo int `json:"lo" yaml:"lo"`
	Hi int `json:"hi" yaml:"hi"`
}

// DefaultBounds returns n binary {0,1} domains.
func DefaultBounds(n int) []Bounds {
	b := make([]Bounds, n)
	for i := range b {
		b[i] = Bounds{Lo: 0, Hi: 1}
	}
	return b
}

// InfeasibilityError reports a budget that no assignment can satisfy. It is
// detected before any solver is invoked.
type InfeasibilityError struct {
	Budget int
	MinSum int
	MaxSum int
}

func (e *InfeasibilityError) Error() string {
	return fmt.Sprintf("infeasible constraint: budget %d outside reachable sum range [%d, %d]",
		e.Budget, e.MinSum, e.MaxSum)
}

// Program is a budget-constrained quadratic program over integer variables.
type Program struct {
	mu      []float64
	sigma   [][]float64
	q       float64 // risk factor weighting the quadratic term
	budget  int
	penalty float64
	bounds  []Bounds
}

// New builds a Program and validates its shape. bounds may be nil for the
// binary selection case.
func New(mu []float64, sigma [][]float64, riskFactor float64, budget int, penalty float64, bounds []Bounds) (*Program, error) {
	n := len(mu)
	if n == 0 {
		return nil, fmt.Errorf("no assets provided")
	}
	if len(sigma) != n {
		return nil, fmt.Errorf("covariance matrix size %d doesn't match asset count %d", len(sigma), n)
	}
	for i := range sigma {
		if len(sigma[i]) != n {
			return nil, fmt.Errorf("covariance matrix row %d has size %d, expected %d", i, len(sigma[i]), n)
		}
	}
	if riskFactor <= 0 {
		return nil, fmt.Errorf("risk factor must be positive, got %v", riskFactor)
	}
	if penalty < 0 {
		return nil, fmt.Errorf("penalty weight must be non-negative, got %v", penalty)
	}

	if bounds == nil {
		bounds = DefaultBounds(n)
	}
	if len(bounds) != n {
		return nil, fmt.Errorf("bounds length %d doesn't match asset count %d", len(bounds), n)
	}
	for i, b := range bounds {
		if b.Lo > b.Hi {
			return nil, fmt.Errorf("invalid bounds for asset %d: [%d, %d]", i, b.Lo, b.Hi)
		}
	}

	return &Program{
		mu:      mu,
		sigma:   sigma,
		q:       riskFactor,
		budget:  budget,
		penalty: penalty,
		bounds:  bounds,
	}, nil
}

// NumAssets returns the number of decision variables.
func (p *Program) NumAssets() int { return len(p.mu) }

// Budget returns the required sum of the decision vector.
func (p *Program) Budget() int { return p.budget }

// Penalty returns the penalty weight for the relaxed constraint.
func (p *Program) Penalty() float64 { return p.penalty }

// VariableBounds returns the per-asset domains.
func (p *Program) VariableBounds() []Bounds { return p.bounds }

// Validate checks feasibility of the budget against the domain bounds.
// The budget must lie within [Σ lo_i, Σ hi_i]; anything else is an
// InfeasibilityError and the program must not be handed to a solver.
func (p *Program) Validate() error {
	minSum, maxSum := 0, 0
	for _, b := range p.bounds {
		minSum += b.Lo
		maxSum += b.Hi
	}
	if p.budget < minSum || p.budget > maxSum {
		return &InfeasibilityError{Budget: p.budget, MinSum: minSum, MaxSum: maxSum}
	}
	return nil
}

// checkAssignment verifies an assignment's length and domains.
func (p *Program) checkAssignment(x []int) error {
	if len(x) != len(p.mu) {
		return fmt.Errorf("assignment length %d doesn't match asset count %d", len(x), len(p.mu))
	}
	for i, v := range x {
		if v < p.bounds[i].Lo || v > p.bounds[i].Hi {
			return fmt.Errorf("assignment value %d for asset %d outside bounds [%d, %d]",
				v, i, p.bounds[i].Lo, p.bounds[i].Hi)
		}
	}
	return nil
}

// Evaluate computes the pure objective q·xᵀΣx − μᵀx.
func (p *Program) Evaluate(x []int) (float64, error) {
	if err := p.checkAssignment(x); err != nil {
		return 0, err
	}

	n := len(x)
	var variance, ret float64
	for i := 0; i < n; i++ {
		xi := float64(x[i])
		ret += p.mu[i] * xi
		for j := 0; j < n; j++ {
			variance += xi * float64(x[j]) * p.sigma[i][j]
		}
	}

	return p.q*variance - ret, nil
}

// PenaltyTerm computes λ·(1ᵀx − B)². It is exactly zero for any on-budget
// assignment regardless of λ.
func (p *Program) PenaltyTerm(x []int) float64 {
	sum := 0
	for _, v := range x {
		sum += v
	}
	diff := float64(sum - p.budget)
	return p.penalty * diff * diff
}

// EvaluateRelaxed computes the unconstrained objective with the budget
// equality relaxed into the penalty term.
func (p *Program) EvaluateRelaxed(x []int) (float64, error) {
	obj, err := p.Evaluate(x)
	if err != nil {
		return 0, err
	}
	return obj + p.PenaltyTerm(x), nil
}

// maxEnumerable caps the candidate space a solver may enumerate.
const maxEnumerable = 1 << 24

// NumCandidates returns the size of the full candidate space
// (Π (hi_i − lo_i + 1)), or an error when it exceeds the enumerable cap.
func (p *Program) NumCandidates() (int, error) {
	total := 1
	for i, b := range p.bounds {
		radix := b.Hi - b.Lo + 1
		if total > maxEnumerable/radix {
			return 0, fmt.Errorf("candidate space exceeds enumerable limit at asset %d", i)
		}
		total *= radix
	}
	return total, nil
}

// Decode maps a candidate index to its assignment via positional
// decomposition: the least-significant digit corresponds to the first asset,
// matching the decision vector's indexing. In the binary case this is the
// standard bit decomposition of the index.
func (p *Program) Decode(index int) ([]int, error) {
	total, err := p.NumCandidates()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= total {
		return nil, fmt.Errorf("candidate index %d outside [0, %d)", index, total)
	}

	x := make([]int, len(p.bounds))
	rem := index
	for i, b := range p.bounds {
		radix := b.Hi - b.Lo + 1
		x[i] = b.Lo + rem%radix
		rem /= radix
	}
	return x, nil
}

// Encode is the exact inverse of Decode.
func (p *Program) Encode(x []int) (int, error) {
	if err := p.checkAssignment(x); err != nil {
		return 0, err
	}

	index := 0
	weight := 1
	for i, b := range p.bounds {
		index += (x[i] - b.Lo) * weight
		weight *= b.Hi - b.Lo + 1
	}
	return index, nil
}

// RelaxedContinuous returns the relaxed objective and gradient as functions
// over continuous weights. Solvers use it to warm-start discrete search from
// a continuous optimum.
func (p *Program) RelaxedContinuous() (func(x []float64) float64, func(grad, x []float64)) {
	n := len(p.mu)

	fn := func(x []float64) float64 {
		var variance, ret, sum float64
		for i := 0; i < n; i++ {
			ret += p.mu[i] * x[i]
			sum += x[i]
			for j := 0; j < n; j++ {
				variance += x[i] * x[j] * p.sigma[i][j]
			}
		}
		diff := sum - float64(p.budget)
		return p.q*variance - ret + p.penalty*diff*diff
	}

	grad := func(grad, x []float64) {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i]
		}
		diff := sum - float64(p.budget)
		for i := 0; i < n; i++ {
			g := -p.mu[i] + 2*p.penalty*diff
			for j := 0; j < n; j++ {
				g += 2 * p.q * p.sigma[i][j] * x[j]
			}
			grad[i] = g
		}
	}

	return fn, grad
}

// ClampToBounds projects a continuous point onto the integer domains,
// rounding to the nearest feasible value per asset.
func (p *Program) ClampToBounds(x []float64) []int {
	out := make([]int, len(x))
	for i, v := range x {
		r := int(math.Round(v))
		if r < p.bounds[i].Lo {
			r = p.bounds[i].Lo
		}
		if r > p.bounds[i].Hi {
			r = p.bounds[i].Hi
		}
		out[i] = r
	}
	return out
}
