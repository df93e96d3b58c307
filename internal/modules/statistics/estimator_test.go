package statistics

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/modules/universe"
)

// fakePrices serves a fixed TimeSeries.
type fakePrices struct {
	series universe.TimeSeries
	err    error
	calls  int
}

func (f *fakePrices) AlignedSeries(symbols []string, lookbackDays int) (universe.TimeSeries, error) {
	f.calls++
	return f.series, f.err
}

// syntheticSeries builds numDates of gently trending prices for the symbols.
func syntheticSeries(symbols []string, numDates int) universe.TimeSeries {
	dates := make([]string, numDates)
	data := make(map[string][]float64, len(symbols))

	for i := range dates {
		dates[i] = fmt.Sprintf("2024-01-%02d", i+1)
	}
	for s, symbol := range symbols {
		prices := make([]float64, numDates)
		base := 100.0 + 10.0*float64(s)
		for i := range prices {
			// Deterministic wiggle so variance is non-zero and differs by symbol.
			prices[i] = base + float64(i)*0.5 + math.Sin(float64(i+s))*float64(s+1)
		}
		data[symbol] = prices
	}

	return universe.TimeSeries{Dates: dates, Data: data}
}

func TestEstimateFromSeries(t *testing.T) {
	symbols := []string{"AAA", "BBB", "CCC"}
	series := syntheticSeries(symbols, 40)

	est, err := EstimateFromSeries(series, symbols)
	require.NoError(t, err)
	require.NotNil(t, est)

	assert.Equal(t, symbols, est.Symbols)
	require.Len(t, est.Mu, 3)
	require.Len(t, est.Cov, 3)

	// One return observation fewer than price observations.
	for _, symbol := range symbols {
		assert.Len(t, est.Returns[symbol], 39)
	}

	// Covariance is symmetric with positive diagonal.
	for i := 0; i < 3; i++ {
		assert.Greater(t, est.Cov[i][i], 0.0)
		for j := 0; j < 3; j++ {
			assert.InDelta(t, est.Cov[i][j], est.Cov[j][i], 1e-15)
		}
	}
}

func TestEstimateFromSeries_FillsGaps(t *testing.T) {
	symbols := []string{"AAA", "BBB"}
	series := syntheticSeries(symbols, 35)
	series.Data["BBB"][0] = math.NaN()  // leading gap, back-filled
	series.Data["BBB"][10] = math.NaN() // interior gap, forward-filled

	est, err := EstimateFromSeries(series, symbols)
	require.NoError(t, err)

	for _, r := range est.Returns["BBB"] {
		assert.False(t, math.IsNaN(r))
	}
}

func TestEstimateFromSeries_MissingSymbol(t *testing.T) {
	series := syntheticSeries([]string{"AAA"}, 35)

	_, err := EstimateFromSeries(series, []string{"AAA", "ZZZ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZZZ")
}

func TestEstimator_InsufficientHistory(t *testing.T) {
	symbols := []string{"AAA", "BBB"}
	prices := &fakePrices{series: syntheticSeries(symbols, 10)}

	e := NewEstimator(prices, nil, zerolog.Nop())

	_, err := e.Estimate(symbols, 252)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient price history")
}

func TestEstimator_NoSymbols(t *testing.T) {
	e := NewEstimator(&fakePrices{}, nil, zerolog.Nop())

	_, err := e.Estimate(nil, 252)
	assert.Error(t, err)
}

func TestEstimator_DelegatesToSource(t *testing.T) {
	symbols := []string{"AAA", "BBB"}
	prices := &fakePrices{series: syntheticSeries(symbols, 40)}

	e := NewEstimator(prices, nil, zerolog.Nop())

	est, err := e.Estimate(symbols, 252)
	require.NoError(t, err)
	assert.Equal(t, symbols, est.Symbols)
	assert.Equal(t, 1, prices.calls)
}

func TestHashSymbols_OrderIndependent(t *testing.T) {
	a := hashSymbols([]string{"AAA", "BBB"}, 252)
	b := hashSymbols([]string{"BBB", "AAA"}, 252)
	c := hashSymbols([]string{"AAA", "BBB"}, 100)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestLedoitWolfShrinkage(t *testing.T) {
	sample := [][]float64{
		{0.05, 0.01, 0.002},
		{0.01, 0.03, 0.004},
		{0.002, 0.004, 0.04},
	}

	shrunk, err := applyLedoitWolfShrinkage(sample)
	require.NoError(t, err)
	require.Len(t, shrunk, 3)

	var avgVar float64
	for i := 0; i < 3; i++ {
		avgVar += sample[i][i]
	}
	avgVar /= 3

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, shrunk[i][j], shrunk[j][i], 1e-15, "stays symmetric")
			if i == j {
				// Diagonal moves towards the average variance.
				lo := math.Min(sample[i][i], avgVar)
				hi := math.Max(sample[i][i], avgVar)
				assert.GreaterOrEqual(t, shrunk[i][j], lo-1e-15)
				assert.LessOrEqual(t, shrunk[i][j], hi+1e-15)
			}
		}
	}
}

func TestLedoitWolfShrinkage_SingleAsset(t *testing.T) {
	sample := [][]float64{{0.05}}

	shrunk, err := applyLedoitWolfShrinkage(sample)
	require.NoError(t, err)
	assert.Equal(t, sample, shrunk)
}
