package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/qubo"
)

// defaultTemperature scales the Boltzmann distribution over candidates.
const defaultTemperature = 1.0

// Exhaustive enumerates every candidate assignment and minimizes the relaxed
// objective. It exposes a Boltzmann distribution over candidates, the
// classical stand-in for the amplitude distribution a variational
// eigensolver would report.
type Exhaustive struct {
	// Temperature controls how sharply probability mass concentrates on
	// low-objective candidates. Defaults to 1.0 when non-positive.
	Temperature float64

	// OnProgress, when set, is invoked periodically during enumeration.
	OnProgress func(Progress)

	log zerolog.Logger
}

// NewExhaustive creates an exhaustive solver.
func NewExhaustive(log zerolog.Logger) *Exhaustive {
	return &Exhaustive{
		log: log.With().Str("solver", "exhaustive").Logger(),
	}
}

// Name returns the solver name.
func (s *Exhaustive) Name() string { return "exhaustive" }

// Solve enumerates the full candidate space.
func (s *Exhaustive) Solve(ctx context.Context, prog *qubo.Program) (*Result, error) {
	total, err := prog.NumCandidates()
	if err != nil {
		return nil, fmt.Errorf("candidate space not enumerable: %w", err)
	}

	temperature := s.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	relaxed := make([]float64, total)
	bestIndex := -1
	bestValue := math.Inf(1)

	for i := 0; i < total; i++ {
		if i%4096 == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("solve cancelled: %w", ctx.Err())
			default:
			}
			if s.OnProgress != nil && i > 0 {
				s.OnProgress(Progress{Iteration: i, BestValue: bestValue})
			}
		}

		x, err := prog.Decode(i)
		if err != nil {
			return nil, fmt.Errorf("failed to decode candidate %d: %w", i, err)
		}

		value, err := prog.EvaluateRelaxed(x)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate candidate %d: %w", i, err)
		}

		relaxed[i] = value
		if value < bestValue {
			bestValue = value
			bestIndex = i
		}
	}

	// Boltzmann weights relative to the minimum keep the exponentials in
	// range for any objective scale.
	probabilities := make([]float64, total)
	var norm float64
	for i, value := range relaxed {
		w := math.Exp(-(value - bestValue) / temperature)
		probabilities[i] = w
		norm += w
	}
	for i := range probabilities {
		probabilities[i] /= norm
	}

	assignment, err := prog.Decode(bestIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode best candidate: %w", err)
	}

	objective, err := prog.Evaluate(assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate best candidate: %w", err)
	}

	s.log.Debug().
		Int("candidates", total).
		Int("best_index", bestIndex).
		Float64("best_objective", objective).
		Msg("Exhaustive solve completed")

	return &Result{
		Assignment:    assignment,
		Value:         objective,
		Probabilities: probabilities,
	}, nil
}
