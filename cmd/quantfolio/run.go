package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfolio/quantfolio/internal/modules/performance"
	"github.com/quantfolio/quantfolio/internal/modules/qubo"
	"github.com/quantfolio/quantfolio/internal/modules/selection"
	"github.com/quantfolio/quantfolio/internal/modules/solver"
)

func runCmd() *cobra.Command {
	var (
		scenarioPath string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a portfolio selection from a scenario file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScenario(scenarioPath)
			if err != nil {
				return err
			}

			if sc.HasPrices() {
				return runWithPrices(cmd, sc, asJSON)
			}
			return runDirect(cmd, sc, asJSON)
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "scenario.yaml", "path to the scenario YAML file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the result as JSON instead of a report")
	return cmd
}

// runWithPrices runs the full pipeline: statistics from the scenario's price
// series, solve, and performance comparison.
func runWithPrices(cmd *cobra.Command, sc *Scenario, asJSON bool) error {
	est, err := sc.Estimates()
	if err != nil {
		return fmt.Errorf("failed to estimate statistics: %w", err)
	}

	evaluator := performance.NewEvaluator(0, log.Logger)
	service := selection.NewService(&fixedSource{est: est}, evaluator, log.Logger)

	result, err := service.Run(cmd.Context(), sc.Request())
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd, result)
	}
	cmd.Println(selection.FormatReport(result))
	return nil
}

// runDirect solves a scenario given as explicit mu/cov statistics. Without
// price series there is nothing to evaluate performance against, so only the
// solve outcome is reported.
func runDirect(cmd *cobra.Command, sc *Scenario, asJSON bool) error {
	prog, err := qubo.New(sc.Mu, sc.Cov, sc.RiskFactor, sc.Budget, sc.PenaltyWeight, sc.Bounds)
	if err != nil {
		return err
	}
	if err := prog.Validate(); err != nil {
		return err
	}

	eng, err := newSolver(sc)
	if err != nil {
		return err
	}

	result, err := eng.Solve(cmd.Context(), prog)
	if err != nil {
		return err
	}

	var selected []string
	for i, v := range result.Assignment {
		if v > 0 {
			selected = append(selected, sc.Symbols[i])
		}
	}

	if asJSON {
		return printJSON(cmd, map[string]interface{}{
			"solver":     eng.Name(),
			"assignment": result.Assignment,
			"objective":  result.Value,
			"selected":   selected,
		})
	}

	cmd.Printf("Solver:    %s\n", eng.Name())
	cmd.Printf("Solution:  %v  objective=%.6g\n", result.Assignment, result.Value)
	cmd.Printf("Selected:  %v\n", selected)
	return nil
}

func newSolver(sc *Scenario) (solver.Solver, error) {
	switch sc.Solver {
	case "", "exhaustive":
		return solver.NewExhaustive(log.Logger), nil
	case "annealing":
		seed := sc.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return solver.NewAnnealer(seed, log.Logger), nil
	default:
		return nil, fmt.Errorf("unknown solver %q", sc.Solver)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
