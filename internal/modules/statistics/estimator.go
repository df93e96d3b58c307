// Package statistics derives expected-return and covariance estimates from
// historical prices.
package statistics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/quantfolio/internal/modules/calculations"
	"github.com/quantfolio/quantfolio/internal/modules/universe"
	"github.com/quantfolio/quantfolio/pkg/formulas"
)

// DefaultLookbackDays is one year of trading days.
const DefaultLookbackDays = 252

// Estimates holds the statistics consumed by the objective builder and the
// performance evaluator. Ordering follows Symbols throughout.
type Estimates struct {
	Symbols []string             `msgpack:"symbols"`
	Mu      []float64            `msgpack:"mu"`  // mean period return per asset
	Cov     [][]float64          `msgpack:"cov"` // shrunk sample covariance
	Returns map[string][]float64 `msgpack:"returns"`
}

// PriceSource is the slice of the price repository the estimator needs.
type PriceSource interface {
	AlignedSeries(symbols []string, lookbackDays int) (universe.TimeSeries, error)
}

// Estimator computes return statistics, optionally caching results.
type Estimator struct {
	prices PriceSource
	cache  *calculations.Cache // optional
	log    zerolog.Logger
}

// NewEstimator creates a new estimator. cache may be nil.
func NewEstimator(prices PriceSource, cache *calculations.Cache, log zerolog.Logger) *Estimator {
	return &Estimator{
		prices: prices,
		cache:  cache,
		log:    log.With().Str("component", "statistics").Logger(),
	}
}

// hashSymbols creates a deterministic cache key from a symbol list.
// Symbols are sorted so the key is order-independent.
func hashSymbols(symbols []string, lookbackDays int) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	keyData := fmt.Sprintf("%s|%d", strings.Join(sorted, ","), lookbackDays)
	h := sha256.Sum256([]byte(keyData))
	return hex.EncodeToString(h[:16])
}

// Estimate loads aligned prices and produces Estimates for the symbols, in
// the given order. Results are cached for 24 hours when a cache is set.
func (e *Estimator) Estimate(symbols []string, lookbackDays int) (*Estimates, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	key := hashSymbols(symbols, lookbackDays)
	if e.cache != nil {
		var cached Estimates
		if e.cache.Get("estimates", key, &cached) && sameOrder(cached.Symbols, symbols) {
			e.log.Debug().Str("hash", key[:8]).Msg("Using cached estimates")
			return &cached, nil
		}
	}

	series, err := e.prices.AlignedSeries(symbols, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load price series: %w", err)
	}
	if len(series.Dates) < 30 {
		return nil, fmt.Errorf("insufficient price history: only %d days available (need at least 30)", len(series.Dates))
	}

	est, err := EstimateFromSeries(series, symbols)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set("estimates", key, est, calculations.TTLCovariance); err != nil {
			e.log.Warn().Err(err).Msg("Failed to cache estimates")
		}
	}

	e.log.Info().
		Int("num_symbols", len(symbols)).
		Int("num_dates", len(series.Dates)).
		Msg("Estimated return statistics")

	return est, nil
}

// EstimateFromSeries computes Estimates from an already aligned TimeSeries.
// Used directly by the CLI when prices come from a scenario file.
func EstimateFromSeries(series universe.TimeSeries, symbols []string) (*Estimates, error) {
	filled := series.FillMissing()
	returns := calculateReturns(filled)

	mu := make([]float64, len(symbols))
	for i, symbol := range symbols {
		r, ok := returns[symbol]
		if !ok || len(r) == 0 {
			return nil, fmt.Errorf("no return series for symbol %s", symbol)
		}
		mu[i] = stat.Mean(r, nil)
	}

	cov, err := covarianceWithShrinkage(returns, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate covariance: %w", err)
	}

	return &Estimates{
		Symbols: symbols,
		Mu:      mu,
		Cov:     cov,
		Returns: returns,
	}, nil
}

// calculateReturns converts aligned prices to daily returns. The first
// period has no prior observation and is dropped.
func calculateReturns(ts universe.TimeSeries) map[string][]float64 {
	returns := make(map[string][]float64, len(ts.Data))

	for symbol, prices := range ts.Data {
		if len(prices) < 2 {
			returns[symbol] = []float64{}
			continue
		}

		daily := make([]float64, len(prices)-1)
		for i := 1; i < len(prices); i++ {
			if prices[i-1] > 0 && !math.IsNaN(prices[i]) && !math.IsNaN(prices[i-1]) {
				daily[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
			} else {
				daily[i-1] = 0.0
			}
		}
		returns[symbol] = daily
	}

	return returns
}

// sampleCovariance calculates the sample covariance matrix of the returns in
// symbol order. Element (i,j) is the covariance between symbols[i] and
// symbols[j]; the result is symmetric by construction.
func sampleCovariance(returns map[string][]float64, symbols []string) ([][]float64, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	var returnLength int
	for _, symbol := range symbols {
		r, ok := returns[symbol]
		if !ok {
			return nil, fmt.Errorf("missing returns for symbol %s", symbol)
		}
		if returnLength == 0 {
			returnLength = len(r)
		}
		if len(r) != returnLength {
			return nil, fmt.Errorf("inconsistent return lengths: expected %d, got %d for symbol %s", returnLength, len(r), symbol)
		}
	}

	if returnLength < 2 {
		return nil, fmt.Errorf("insufficient data: need at least 2 observations, got %d", returnLength)
	}

	n := len(symbols)
	covMatrix := make([][]float64, n)
	for i := range covMatrix {
		covMatrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := formulas.Covariance(returns[symbols[i]], returns[symbols[j]])
			covMatrix[i][j] = cov
			if i != j {
				covMatrix[j][i] = cov
			}
		}
	}

	return covMatrix, nil
}

// applyLedoitWolfShrinkage shrinks a sample covariance matrix towards a
// constant-correlation target for better conditioning with limited data.
//
// Reference: Ledoit, O., & Wolf, M. (2004). "A well-conditioned estimator for
// large-dimensional covariance matrices"
func applyLedoitWolfShrinkage(sampleCov [][]float64) ([][]float64, error) {
	n := len(sampleCov)
	if n == 0 {
		return nil, fmt.Errorf("empty covariance matrix")
	}
	if n == 1 {
		return sampleCov, nil
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sampleCov[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sampleCov[i][j]
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	target := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				target.Set(i, j, avgVar)
			} else if avgVar > 0 {
				target.Set(i, j, avgCov)
			}
		}
	}

	// Shrinkage intensity: simplified estimator, bounded to [0, 0.5].
	shrinkage := 0.2
	if n > 2 && avgVar > 0 {
		var sumSqDiff float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := sampleCov[i][j] - target.At(i, j)
				sumSqDiff += diff * diff
			}
		}
		meanSqDiff := sumSqDiff / float64(n*n)

		var sumSqSample, meanSample float64
		count := 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				val := sampleCov[i][j]
				meanSample += val
				sumSqSample += val * val
				count++
			}
		}
		meanSample /= float64(count)
		varSample := sumSqSample/float64(count) - meanSample*meanSample

		if varSample > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(0.5, math.Max(0.0, varSample/(varSample+meanSqDiff)))
		}
	}

	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shrunk[i][j] = (1-shrinkage)*sampleCov[i][j] + shrinkage*target.At(i, j)
		}
	}

	return shrunk, nil
}

// covarianceWithShrinkage chains sample covariance and Ledoit-Wolf shrinkage.
func covarianceWithShrinkage(returns map[string][]float64, symbols []string) ([][]float64, error) {
	sampleCov, err := sampleCovariance(returns, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate sample covariance: %w", err)
	}

	shrunk, err := applyLedoitWolfShrinkage(sampleCov)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Ledoit-Wolf shrinkage: %w", err)
	}

	return shrunk, nil
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
