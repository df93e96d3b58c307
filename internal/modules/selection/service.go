package selection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/performance"
	"github.com/quantfolio/quantfolio/internal/modules/qubo"
	"github.com/quantfolio/quantfolio/internal/modules/solver"
	"github.com/quantfolio/quantfolio/internal/modules/statistics"
)

// SolverNames lists the engines the service can run.
var SolverNames = []string{"exhaustive", "annealing"}

// ErrInvalidRequest marks request validation failures.
var ErrInvalidRequest = errors.New("invalid selection request")

// StatisticsSource is the slice of the estimator the service needs.
type StatisticsSource interface {
	Estimate(symbols []string, lookbackDays int) (*statistics.Estimates, error)
}

// Service runs end-to-end selections.
type Service struct {
	stats     StatisticsSource
	evaluator *performance.Evaluator
	log       zerolog.Logger
}

// NewService creates a selection service.
func NewService(stats StatisticsSource, evaluator *performance.Evaluator, log zerolog.Logger) *Service {
	return &Service{
		stats:     stats,
		evaluator: evaluator,
		log:       log.With().Str("component", "selection").Logger(),
	}
}

// Run executes a selection without progress reporting.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	return s.run(ctx, req, nil)
}

// RunWithProgress executes a selection, forwarding solver progress to
// onProgress. Used by the streaming handler.
func (s *Service) RunWithProgress(ctx context.Context, req Request, onProgress func(solver.Progress)) (*Result, error) {
	return s.run(ctx, req, onProgress)
}

func (s *Service) run(ctx context.Context, req Request, onProgress func(solver.Progress)) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	est, err := s.stats.Estimate(req.Symbols, req.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate statistics: %w", err)
	}

	penalty := req.PenaltyWeight
	if penalty == 0 {
		penalty = autoPenalty(est.Mu, est.Cov, req.RiskFactor)
	}

	prog, err := qubo.New(est.Mu, est.Cov, req.RiskFactor, req.Budget, penalty, req.Bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}

	eng, err := s.newSolver(req, onProgress)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	started := time.Now()
	s.log.Info().
		Str("run_id", runID).
		Str("solver", eng.Name()).
		Int("num_symbols", len(req.Symbols)).
		Int("budget", req.Budget).
		Float64("penalty", penalty).
		Msg("Starting selection run")

	solved, err := eng.Solve(ctx, prog)
	if err != nil {
		return nil, fmt.Errorf("solve failed: %w", err)
	}

	candidates, err := buildCandidates(prog, solved.Probabilities, req.MaxCandidates)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      runID,
		Symbols:    req.Symbols,
		SolverName: eng.Name(),
		Assignment: solved.Assignment,
		Objective:  solved.Value,
		Candidates: candidates,
	}

	var selected []string
	var weights []float64
	for i, v := range solved.Assignment {
		if v > 0 {
			selected = append(selected, req.Symbols[i])
			weights = append(weights, float64(v))
		}
	}
	result.Selected = selected

	if len(selected) > 0 {
		metrics, err := s.evaluator.Evaluate(est.Returns, selected, weights, req.Notional)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate selected portfolio: %w", err)
		}
		result.SelectedMetrics = metrics
	}

	universeMetrics, err := s.evaluator.Evaluate(est.Returns, req.Symbols, nil, req.Notional)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate universe portfolio: %w", err)
	}
	result.UniverseMetrics = universeMetrics

	s.log.Info().
		Str("run_id", runID).
		Strs("selected", selected).
		Float64("objective", solved.Value).
		Dur("elapsed", time.Since(started)).
		Msg("Selection run completed")

	return result, nil
}

func validateRequest(req *Request) error {
	if len(req.Symbols) < 2 {
		return fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInvalidRequest, len(req.Symbols))
	}
	if req.RiskFactor <= 0 {
		return fmt.Errorf("%w: risk factor must be positive, got %v", ErrInvalidRequest, req.RiskFactor)
	}
	if req.LookbackDays <= 0 {
		req.LookbackDays = statistics.DefaultLookbackDays
	}
	if req.Solver == "" {
		req.Solver = "exhaustive"
	}
	if req.Notional <= 0 {
		req.Notional = performance.DefaultNotional
	}
	return nil
}

func (s *Service) newSolver(req Request, onProgress func(solver.Progress)) (solver.Solver, error) {
	switch req.Solver {
	case "exhaustive":
		eng := solver.NewExhaustive(s.log)
		eng.OnProgress = onProgress
		return eng, nil
	case "annealing":
		seed := req.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		eng := solver.NewAnnealer(seed, s.log)
		eng.OnProgress = onProgress
		return eng, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver %q (available: %v)", ErrInvalidRequest, req.Solver, SolverNames)
	}
}

// autoPenalty picks a penalty weight large enough that a one-unit budget
// violation always costs more than any achievable objective improvement.
func autoPenalty(mu []float64, cov [][]float64, riskFactor float64) float64 {
	var sumAbsMu, sumAbsCov float64
	for _, m := range mu {
		sumAbsMu += math.Abs(m)
	}
	for _, row := range cov {
		for _, c := range row {
			sumAbsCov += math.Abs(c)
		}
	}
	penalty := 2 * (riskFactor*sumAbsCov + sumAbsMu)
	if penalty == 0 {
		penalty = 1
	}
	return penalty
}

// buildCandidates decodes the solver's distribution into assignments with
// recomputed objective values, sorted by descending probability.
func buildCandidates(prog *qubo.Program, probabilities []float64, limit int) ([]Candidate, error) {
	if probabilities == nil {
		return nil, nil
	}

	candidates := make([]Candidate, len(probabilities))
	for i, p := range probabilities {
		x, err := prog.Decode(i)
		if err != nil {
			return nil, fmt.Errorf("failed to decode candidate %d: %w", i, err)
		}
		objective, err := prog.Evaluate(x)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate candidate %d: %w", i, err)
		}
		candidates[i] = Candidate{Assignment: x, Objective: objective, Probability: p}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Probability > candidates[b].Probability
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
