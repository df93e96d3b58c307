// Package selection orchestrates portfolio selection: statistics, objective
// construction, the feasibility gate, solving, candidate reporting, and the
// performance comparison between the selected subset and the full universe.
package selection

import (
	"github.com/quantfolio/quantfolio/internal/modules/performance"
	"github.com/quantfolio/quantfolio/internal/modules/qubo"
)

// Request describes one selection run.
type Request struct {
	// Symbols is the ordered asset universe (3-9 recommended). Order fixes
	// the indexing between decision variables, μ, and Σ.
	Symbols []string `json:"symbols" yaml:"symbols"`
	// LookbackDays of price history used for statistics. Defaults to 252.
	LookbackDays int `json:"lookback_days" yaml:"lookback_days"`
	// RiskFactor weights the variance term against the return term.
	RiskFactor float64 `json:"risk_factor" yaml:"risk_factor"`
	// Budget is the required sum of the decision vector.
	Budget int `json:"budget" yaml:"budget"`
	// PenaltyWeight for the relaxed budget constraint; 0 selects an
	// automatic weight scaled to the objective.
	PenaltyWeight float64 `json:"penalty_weight" yaml:"penalty_weight"`
	// Bounds are optional per-asset integer domains, default {0,1}.
	Bounds []qubo.Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	// Solver is "exhaustive" (default) or "annealing".
	Solver string `json:"solver" yaml:"solver"`
	// Seed for stochastic solvers. 0 derives one from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
	// MaxCandidates caps the candidate list in the result; 0 keeps all.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`
	// Notional is the starting equity for curves. Defaults to 100.
	Notional float64 `json:"notional" yaml:"notional"`
}

// Candidate pairs an enumerable assignment with its recomputed objective
// value and its probability mass.
type Candidate struct {
	Assignment  []int   `json:"assignment"`
	Objective   float64 `json:"objective"`
	Probability float64 `json:"probability"`
}

// Result is the outcome of one selection run.
type Result struct {
	RunID      string   `json:"run_id"`
	Symbols    []string `json:"symbols"`
	SolverName string   `json:"solver"`

	// Best assignment and its pure objective value.
	Assignment []int   `json:"assignment"`
	Objective  float64 `json:"objective"`

	// Selected symbols (assignment > 0), in universe order.
	Selected []string `json:"selected"`

	// Candidates sorted by descending probability. Empty when the solver
	// does not expose a distribution.
	Candidates []Candidate `json:"candidates,omitempty"`

	// Performance of the selected subset and of the full universe.
	SelectedMetrics *performance.Metrics `json:"selected_metrics"`
	UniverseMetrics *performance.Metrics `json:"universe_metrics"`
}
