// Package solver provides the solving capability consumed by the selection
// service. The interface abstracts the solving technology: exhaustive
// enumeration and simulated annealing ship here, and any engine satisfying
// the same contract (integer programming, a variational eigensolver backend)
// is substitutable without changing callers.
package solver

import (
	"context"
	"errors"

	"github.com/quantfolio/quantfolio/internal/modules/qubo"
)

// ErrNonConvergence is returned when a solver exhausts its iteration budget
// without its best solution stabilizing. Callers surface it for a parameter
// adjustment; retrying unchanged would reproduce the same failure.
var ErrNonConvergence = errors.New("solver did not converge within its iteration budget")

// Result is the outcome of one solve.
type Result struct {
	// Assignment is the best-found decision vector.
	Assignment []int
	// Value is the pure objective q·xᵀΣx − μᵀx at Assignment.
	Value float64
	// Probabilities, when non-nil, holds one probability per candidate
	// index (qubo.Program Decode order). Solvers that do not expose an
	// underlying distribution leave it nil.
	Probabilities []float64
}

// Progress reports intermediate solver state for streaming consumers.
type Progress struct {
	Iteration int     `json:"iteration"`
	BestValue float64 `json:"best_value"`
}

// Solver solves a validated quadratic program.
type Solver interface {
	Name() string
	Solve(ctx context.Context, prog *qubo.Program) (*Result, error)
}
