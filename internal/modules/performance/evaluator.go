// Package performance computes portfolio performance metrics: information
// ratio, CAGR, and equity curves, for comparing a selected subset against
// the full universe.
package performance

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/pkg/formulas"
)

// ErrDegenerateStatistics is returned when a return series has zero variance,
// leaving the information ratio undefined. It is a reported condition, never
// a numeric error value (±Inf/NaN).
var ErrDegenerateStatistics = errors.New("degenerate statistics: return series has zero variance")

// DefaultNotional is the starting equity for curves when callers pass 0.
const DefaultNotional = 100.0

// smoothingWindow is the SMA window applied to reported equity curves.
const smoothingWindow = 20

// Metrics holds the evaluated performance of one portfolio.
type Metrics struct {
	InformationRatio float64   `json:"information_ratio"`
	CAGR             float64   `json:"cagr"`
	EquityCurve      []float64 `json:"equity_curve"`
	EquitySmoothed   []float64 `json:"equity_smoothed"`
	FinalEquity      float64   `json:"final_equity"`
	Observations     int       `json:"observations"`
}

// Evaluator computes performance metrics from return series.
type Evaluator struct {
	periodsPerYear int
	log            zerolog.Logger
}

// NewEvaluator creates an evaluator. periodsPerYear defaults to 252 (daily
// trading data) when non-positive.
func NewEvaluator(periodsPerYear int, log zerolog.Logger) *Evaluator {
	if periodsPerYear <= 0 {
		periodsPerYear = formulas.TradingDaysPerYear
	}
	return &Evaluator{
		periodsPerYear: periodsPerYear,
		log:            log.With().Str("component", "performance").Logger(),
	}
}

// PricesToReturns converts price levels to period-over-period returns.
// The first period has no prior price and is dropped.
func PricesToReturns(prices []float64) []float64 {
	return formulas.CalculateReturns(prices)
}

// PortfolioReturns forms a portfolio return series from per-asset returns.
// weights may be nil for equal weighting across the given symbols; otherwise
// it must align with symbols and is normalized by its sum.
func (e *Evaluator) PortfolioReturns(returns map[string][]float64, symbols []string, weights []float64) ([]float64, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols selected")
	}
	if weights != nil && len(weights) != len(symbols) {
		return nil, fmt.Errorf("weights length %d doesn't match symbols count %d", len(weights), len(symbols))
	}

	var length int
	for _, symbol := range symbols {
		r, ok := returns[symbol]
		if !ok {
			return nil, fmt.Errorf("missing return series for symbol %s", symbol)
		}
		if length == 0 {
			length = len(r)
		}
		if len(r) != length {
			return nil, fmt.Errorf("inconsistent return lengths: expected %d, got %d for symbol %s", length, len(r), symbol)
		}
	}
	if length == 0 {
		return nil, fmt.Errorf("empty return series")
	}

	var totalWeight float64
	if weights == nil {
		totalWeight = float64(len(symbols))
	} else {
		for _, w := range weights {
			totalWeight += w
		}
		if totalWeight == 0 {
			return nil, fmt.Errorf("weights sum to zero")
		}
	}

	portfolio := make([]float64, length)
	for t := 0; t < length; t++ {
		var sum float64
		for i, symbol := range symbols {
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			sum += w * returns[symbol][t]
		}
		portfolio[t] = sum / totalWeight
	}

	return portfolio, nil
}

// InformationRatio annualizes mean/std of the return series. A zero standard
// deviation is ErrDegenerateStatistics.
func (e *Evaluator) InformationRatio(portfolioReturns []float64) (float64, error) {
	if len(portfolioReturns) < 2 {
		return 0, fmt.Errorf("need at least 2 return observations, got %d", len(portfolioReturns))
	}

	mean := formulas.Mean(portfolioReturns)
	std := formulas.StdDev(portfolioReturns)
	if std == 0 {
		return 0, ErrDegenerateStatistics
	}

	return mean / std * math.Sqrt(float64(e.periodsPerYear)), nil
}

// EquityCurve is the cumulative product of (1 + r_t) scaled by a starting
// notional. The curve has one point per return observation.
func (e *Evaluator) EquityCurve(portfolioReturns []float64, notional float64) []float64 {
	if notional <= 0 {
		notional = DefaultNotional
	}

	curve := make([]float64, len(portfolioReturns))
	equity := notional
	for i, r := range portfolioReturns {
		equity *= 1 + r
		curve[i] = equity
	}
	return curve
}

// CAGR computes (final/notional)^(periodsPerYear/observations) − 1.
func (e *Evaluator) CAGR(equityCurve []float64, notional float64) (float64, error) {
	if len(equityCurve) == 0 {
		return 0, fmt.Errorf("empty equity curve")
	}
	if notional <= 0 {
		notional = DefaultNotional
	}

	final := equityCurve[len(equityCurve)-1]
	if final <= 0 {
		return 0, fmt.Errorf("non-positive final equity: %v", final)
	}

	exponent := float64(e.periodsPerYear) / float64(len(equityCurve))
	return math.Pow(final/notional, exponent) - 1, nil
}

// Evaluate computes the full metric set for the given selection.
func (e *Evaluator) Evaluate(returns map[string][]float64, symbols []string, weights []float64, notional float64) (*Metrics, error) {
	portfolio, err := e.PortfolioReturns(returns, symbols, weights)
	if err != nil {
		return nil, err
	}

	ir, err := e.InformationRatio(portfolio)
	if err != nil {
		return nil, err
	}

	if notional <= 0 {
		notional = DefaultNotional
	}
	curve := e.EquityCurve(portfolio, notional)

	cagr, err := e.CAGR(curve, notional)
	if err != nil {
		return nil, err
	}

	metrics := &Metrics{
		InformationRatio: ir,
		CAGR:             cagr,
		EquityCurve:      curve,
		EquitySmoothed:   formulas.SmoothSMA(curve, smoothingWindow),
		FinalEquity:      curve[len(curve)-1],
		Observations:     len(portfolio),
	}

	e.log.Debug().
		Int("num_symbols", len(symbols)).
		Float64("information_ratio", ir).
		Float64("cagr", cagr).
		Msg("Evaluated portfolio performance")

	return metrics, nil
}
