package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantfolio/quantfolio/internal/modules/qubo"
	"github.com/quantfolio/quantfolio/internal/modules/selection"
	"github.com/quantfolio/quantfolio/internal/modules/statistics"
	"github.com/quantfolio/quantfolio/internal/modules/universe"
)

// Scenario is a self-contained selection setup loaded from a YAML file.
// Either per-symbol price series or explicit mu/cov statistics must be given;
// performance metrics are only available when prices are.
type Scenario struct {
	Symbols []string             `yaml:"symbols"`
	Prices  map[string][]float64 `yaml:"prices,omitempty"`
	Dates   []string             `yaml:"dates,omitempty"`

	Mu  []float64   `yaml:"mu,omitempty"`
	Cov [][]float64 `yaml:"cov,omitempty"`

	RiskFactor    float64       `yaml:"risk_factor"`
	Budget        int           `yaml:"budget"`
	PenaltyWeight float64       `yaml:"penalty_weight,omitempty"`
	Bounds        []qubo.Bounds `yaml:"bounds,omitempty"`
	Solver        string        `yaml:"solver,omitempty"`
	Seed          int64         `yaml:"seed,omitempty"`
	MaxCandidates int           `yaml:"max_candidates,omitempty"`
	Notional      float64       `yaml:"notional,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	if len(sc.Symbols) == 0 {
		return nil, fmt.Errorf("scenario has no symbols")
	}
	if len(sc.Prices) == 0 && (len(sc.Mu) == 0 || len(sc.Cov) == 0) {
		return nil, fmt.Errorf("scenario needs either prices or mu and cov")
	}

	return &sc, nil
}

// HasPrices reports whether the scenario carries price series.
func (sc *Scenario) HasPrices() bool { return len(sc.Prices) > 0 }

// Request maps the scenario onto a selection request.
func (sc *Scenario) Request() selection.Request {
	return selection.Request{
		Symbols:       sc.Symbols,
		RiskFactor:    sc.RiskFactor,
		Budget:        sc.Budget,
		PenaltyWeight: sc.PenaltyWeight,
		Bounds:        sc.Bounds,
		Solver:        sc.Solver,
		Seed:          sc.Seed,
		MaxCandidates: sc.MaxCandidates,
		Notional:      sc.Notional,
	}
}

// Estimates derives statistics from the scenario's price series.
func (sc *Scenario) Estimates() (*statistics.Estimates, error) {
	for _, symbol := range sc.Symbols {
		if _, ok := sc.Prices[symbol]; !ok {
			return nil, fmt.Errorf("scenario has no prices for symbol %s", symbol)
		}
	}

	series := universe.TimeSeries{
		Dates: sc.Dates,
		Data:  sc.Prices,
	}
	return statistics.EstimateFromSeries(series, sc.Symbols)
}

// fixedSource serves precomputed estimates to the selection service.
type fixedSource struct {
	est *statistics.Estimates
}

func (s *fixedSource) Estimate(symbols []string, lookbackDays int) (*statistics.Estimates, error) {
	return s.est, nil
}
