package solver

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/modules/qubo"
)

// newTestProgram builds an n-asset program with a diagonal covariance and
// slightly increasing expected returns, so the optimum is easy to reason
// about: select the B highest-return assets.
func newTestProgram(t *testing.T, n, budget int, penalty float64) *qubo.Program {
	t.Helper()

	mu := make([]float64, n)
	sigma := make([][]float64, n)
	for i := 0; i < n; i++ {
		mu[i] = 0.05 + 0.01*float64(i)
		sigma[i] = make([]float64, n)
		sigma[i][i] = 0.02
	}

	prog, err := qubo.New(mu, sigma, 0.5, budget, penalty, nil)
	require.NoError(t, err)
	require.NoError(t, prog.Validate())
	return prog
}

// bruteForceBest finds the relaxed-optimal assignment by full enumeration.
func bruteForceBest(t *testing.T, prog *qubo.Program) []int {
	t.Helper()

	total, err := prog.NumCandidates()
	require.NoError(t, err)

	best := math.Inf(1)
	var bestX []int
	for i := 0; i < total; i++ {
		x, err := prog.Decode(i)
		require.NoError(t, err)
		v, err := prog.EvaluateRelaxed(x)
		require.NoError(t, err)
		if v < best {
			best = v
			bestX = x
		}
	}
	return bestX
}

func TestExhaustive_FindsOptimum(t *testing.T) {
	prog := newTestProgram(t, 5, 2, 10.0)
	s := NewExhaustive(zerolog.Nop())

	result, err := s.Solve(context.Background(), prog)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, bruteForceBest(t, prog), result.Assignment)

	// With a dominant penalty the winner is on budget: the two highest
	// returns are assets 3 and 4.
	assert.Equal(t, []int{0, 0, 0, 1, 1}, result.Assignment)

	// Value is the pure objective, without the penalty term.
	pure, err := prog.Evaluate(result.Assignment)
	require.NoError(t, err)
	assert.Equal(t, pure, result.Value)
}

func TestExhaustive_DistributionSumsToOne(t *testing.T) {
	prog := newTestProgram(t, 5, 2, 10.0)
	s := NewExhaustive(zerolog.Nop())

	result, err := s.Solve(context.Background(), prog)
	require.NoError(t, err)

	total, err := prog.NumCandidates()
	require.NoError(t, err)
	require.Len(t, result.Probabilities, total)

	var sum float64
	bestIndex, err := prog.Encode(result.Assignment)
	require.NoError(t, err)
	for i, p := range result.Probabilities {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, result.Probabilities[bestIndex], 1.0)
		assert.LessOrEqual(t, p, result.Probabilities[bestIndex], "best candidate carries the most mass (index %d)", i)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestExhaustive_ReportsProgress(t *testing.T) {
	// 13 binary assets: 8192 candidates, enough for at least one progress
	// callback at the 4096 boundary.
	prog := newTestProgram(t, 13, 3, 10.0)

	s := NewExhaustive(zerolog.Nop())
	var calls int
	s.OnProgress = func(p Progress) {
		calls++
		assert.Greater(t, p.Iteration, 0)
	}

	_, err := s.Solve(context.Background(), prog)
	require.NoError(t, err)
	assert.Greater(t, calls, 0)
}

func TestExhaustive_Cancellation(t *testing.T) {
	prog := newTestProgram(t, 13, 3, 10.0)
	s := NewExhaustive(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Solve(ctx, prog)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnnealer_FindsOptimumOnSmallProblem(t *testing.T) {
	prog := newTestProgram(t, 5, 2, 10.0)
	s := NewAnnealer(42, zerolog.Nop())

	result, err := s.Solve(context.Background(), prog)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []int{0, 0, 0, 1, 1}, result.Assignment)
	assert.Nil(t, result.Probabilities, "annealing exposes no distribution")
}

func TestAnnealer_AssignmentWithinBounds(t *testing.T) {
	mu := []float64{0.1, 0.05, 0.08}
	sigma := [][]float64{
		{0.04, 0.00, 0.00},
		{0.00, 0.03, 0.00},
		{0.00, 0.00, 0.05},
	}
	bounds := []qubo.Bounds{{Lo: -1, Hi: 2}, {Lo: 0, Hi: 3}, {Lo: 0, Hi: 1}}

	prog, err := qubo.New(mu, sigma, 0.5, 2, 5.0, bounds)
	require.NoError(t, err)
	require.NoError(t, prog.Validate())

	s := NewAnnealer(7, zerolog.Nop())
	result, err := s.Solve(context.Background(), prog)
	require.NoError(t, err)

	require.Len(t, result.Assignment, 3)
	for i, v := range result.Assignment {
		assert.GreaterOrEqual(t, v, bounds[i].Lo)
		assert.LessOrEqual(t, v, bounds[i].Hi)
	}
}

func TestAnnealer_Cancellation(t *testing.T) {
	prog := newTestProgram(t, 8, 3, 10.0)
	s := NewAnnealer(1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Solve(ctx, prog)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolverNames(t *testing.T) {
	assert.Equal(t, "exhaustive", NewExhaustive(zerolog.Nop()).Name())
	assert.Equal(t, "annealing", NewAnnealer(0, zerolog.Nop()).Name())
}
