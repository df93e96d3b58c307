package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/quantfolio/quantfolio/internal/modules/qubo"
)

const (
	defaultIterations  = 20000
	defaultInitialTemp = 1.0
	defaultCooling     = 0.999

	// stallFraction of the iteration budget without improvement counts as
	// convergence; exhausting the budget while still improving does not.
	stallFraction = 0.25
)

// Annealer solves the relaxed program by simulated annealing. The search is
// warm-started from a continuous relaxation solved with gonum/optimize and
// clamped to the integer domains. It does not expose a candidate
// distribution.
type Annealer struct {
	Iterations  int
	InitialTemp float64
	Cooling     float64
	Seed        int64

	// OnProgress, when set, is invoked periodically during the search.
	OnProgress func(Progress)

	log zerolog.Logger
}

// NewAnnealer creates an annealing solver with default parameters.
func NewAnnealer(seed int64, log zerolog.Logger) *Annealer {
	return &Annealer{
		Iterations:  defaultIterations,
		InitialTemp: defaultInitialTemp,
		Cooling:     defaultCooling,
		Seed:        seed,
		log:         log.With().Str("solver", "annealing").Logger(),
	}
}

// Name returns the solver name.
func (s *Annealer) Name() string { return "annealing" }

// warmStart solves the continuous relaxation and clamps to the domains.
// Falls back to the lower bounds when the continuous solve fails.
func (s *Annealer) warmStart(prog *qubo.Program) []int {
	n := prog.NumAssets()
	fn, grad := prog.RelaxedContinuous()

	problem := optimize.Problem{Func: fn, Grad: grad}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = float64(prog.Budget()) / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	}
	if err != nil || result == nil {
		s.log.Debug().Msg("Continuous warm start failed, starting from lower bounds")
		bounds := prog.VariableBounds()
		x := make([]int, n)
		for i, b := range bounds {
			x[i] = b.Lo
		}
		return x
	}

	return prog.ClampToBounds(result.X)
}

// Solve runs the annealing search within the iteration budget.
func (s *Annealer) Solve(ctx context.Context, prog *qubo.Program) (*Result, error) {
	iterations := s.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}
	temp := s.InitialTemp
	if temp <= 0 {
		temp = defaultInitialTemp
	}
	cooling := s.Cooling
	if cooling <= 0 || cooling >= 1 {
		cooling = defaultCooling
	}

	rng := rand.New(rand.NewSource(s.Seed))
	bounds := prog.VariableBounds()
	n := prog.NumAssets()

	current := s.warmStart(prog)
	currentValue, err := prog.EvaluateRelaxed(current)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate initial assignment: %w", err)
	}

	best := make([]int, n)
	copy(best, current)
	bestValue := currentValue
	lastImprovement := 0

	stallWindow := int(float64(iterations) * stallFraction)
	if stallWindow < 1 {
		stallWindow = 1
	}

	for iter := 0; iter < iterations; iter++ {
		if iter%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("solve cancelled: %w", ctx.Err())
			default:
			}
			if s.OnProgress != nil && iter > 0 {
				s.OnProgress(Progress{Iteration: iter, BestValue: bestValue})
			}
		}

		// Move: re-draw one variable within its domain.
		i := rng.Intn(n)
		radix := bounds[i].Hi - bounds[i].Lo + 1
		if radix == 1 {
			continue
		}
		old := current[i]
		next := bounds[i].Lo + rng.Intn(radix)
		if next == old {
			continue
		}
		current[i] = next

		candidateValue, err := prog.EvaluateRelaxed(current)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate candidate: %w", err)
		}

		delta := candidateValue - currentValue
		if delta <= 0 || rng.Float64() < math.Exp(-delta/temp) {
			currentValue = candidateValue
			if currentValue < bestValue {
				bestValue = currentValue
				copy(best, current)
				lastImprovement = iter
			}
		} else {
			current[i] = old
		}

		temp *= cooling

		// Early exit once the best solution has stabilized.
		if iter-lastImprovement >= stallWindow {
			objective, err := prog.Evaluate(best)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate best assignment: %w", err)
			}
			s.log.Debug().
				Int("iterations", iter+1).
				Float64("best_objective", objective).
				Msg("Annealing converged")
			return &Result{Assignment: best, Value: objective}, nil
		}
	}

	// Budget exhausted while the best was still moving.
	if iterations-lastImprovement < stallWindow {
		return nil, fmt.Errorf("annealing stopped after %d iterations: %w", iterations, ErrNonConvergence)
	}

	objective, err := prog.Evaluate(best)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate best assignment: %w", err)
	}

	return &Result{Assignment: best, Value: objective}, nil
}
