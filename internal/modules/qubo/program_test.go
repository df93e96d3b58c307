package qubo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixed 5-asset sample used across tests.
var (
	testMu = []float64{0.10, 0.08, 0.12, 0.05, 0.09}

	testSigma = [][]float64{
		{0.040, 0.010, 0.005, 0.002, 0.001},
		{0.010, 0.030, 0.004, 0.003, 0.002},
		{0.005, 0.004, 0.050, 0.001, 0.003},
		{0.002, 0.003, 0.001, 0.020, 0.002},
		{0.001, 0.002, 0.003, 0.002, 0.025},
	}
)

// evaluateDirect computes q·xᵀΣx − μᵀx without going through Program.
func evaluateDirect(mu []float64, sigma [][]float64, q float64, x []int) float64 {
	var variance, ret float64
	for i := range x {
		ret += mu[i] * float64(x[i])
		for j := range x {
			variance += float64(x[i]) * float64(x[j]) * sigma[i][j]
		}
	}
	return q*variance - ret
}

func TestProgram_EvaluateMatchesAlgebra(t *testing.T) {
	prog, err := New(testMu, testSigma, 0.5, 2, 1.0, nil)
	require.NoError(t, err)

	allZero := []int{0, 0, 0, 0, 0}
	allOne := []int{1, 1, 1, 1, 1}

	got, err := prog.Evaluate(allZero)
	require.NoError(t, err)
	assert.Equal(t, evaluateDirect(testMu, testSigma, 0.5, allZero), got)
	assert.Equal(t, 0.0, got, "all-zero assignment has zero objective")

	got, err = prog.Evaluate(allOne)
	require.NoError(t, err)
	assert.Equal(t, evaluateDirect(testMu, testSigma, 0.5, allOne), got)
}

func TestProgram_ReferenceValue(t *testing.T) {
	// x = [1,1,0,0,0], q = 0.5, B = 2: the quadratic form reduces to
	// Σ00 + Σ11 + 2·Σ01 = 0.04 + 0.03 + 0.02 = 0.09, and the return term
	// to μ0 + μ1 = 0.18. Objective: 0.5·0.09 − 0.18 = −0.135.
	prog, err := New(testMu, testSigma, 0.5, 2, 1.0, nil)
	require.NoError(t, err)

	got, err := prog.Evaluate([]int{1, 1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5*0.09-0.18, got)
	assert.InDelta(t, -0.135, got, 1e-15)
}

func TestProgram_PenaltyZeroOnBudget(t *testing.T) {
	onBudget := [][]int{
		{1, 1, 0, 0, 0},
		{0, 0, 1, 1, 0},
		{1, 0, 0, 0, 1},
	}

	for _, lambda := range []float64{0, 0.1, 1, 10, 1e6} {
		prog, err := New(testMu, testSigma, 0.5, 2, lambda, nil)
		require.NoError(t, err)

		for _, x := range onBudget {
			assert.Equal(t, 0.0, prog.PenaltyTerm(x), "penalty must vanish on budget for λ=%v", lambda)

			pure, err := prog.Evaluate(x)
			require.NoError(t, err)
			relaxed, err := prog.EvaluateRelaxed(x)
			require.NoError(t, err)
			assert.Equal(t, pure, relaxed)
		}
	}
}

func TestProgram_PenaltyGrowsOffBudget(t *testing.T) {
	offBudget := []int{1, 1, 1, 1, 0} // sum 4, budget 2, violation 2

	base, err := New(testMu, testSigma, 0.5, 2, 0, nil)
	require.NoError(t, err)
	baseValue, err := base.EvaluateRelaxed(offBudget)
	require.NoError(t, err)

	prev := baseValue
	for _, lambda := range []float64{0.5, 1, 2, 10} {
		prog, err := New(testMu, testSigma, 0.5, 2, lambda, nil)
		require.NoError(t, err)

		relaxed, err := prog.EvaluateRelaxed(offBudget)
		require.NoError(t, err)

		// Exactly λ·(1ᵀx−B)² above the unpenalized value.
		assert.InDelta(t, baseValue+lambda*4, relaxed, 1e-12)
		assert.Greater(t, relaxed, prev)
		prev = relaxed
	}
}

func TestProgram_DecodeEncodeRoundTrip(t *testing.T) {
	t.Run("binary", func(t *testing.T) {
		prog, err := New(testMu, testSigma, 0.5, 2, 1.0, nil)
		require.NoError(t, err)

		total, err := prog.NumCandidates()
		require.NoError(t, err)
		require.Equal(t, 32, total)

		for i := 0; i < total; i++ {
			x, err := prog.Decode(i)
			require.NoError(t, err)

			back, err := prog.Encode(x)
			require.NoError(t, err)
			assert.Equal(t, i, back)
		}
	})

	t.Run("mixed radix with negative bounds", func(t *testing.T) {
		bounds := []Bounds{{Lo: -1, Hi: 1}, {Lo: 0, Hi: 2}, {Lo: 0, Hi: 1}, {Lo: -2, Hi: 0}, {Lo: 0, Hi: 1}}
		prog, err := New(testMu, testSigma, 0.5, 0, 1.0, bounds)
		require.NoError(t, err)

		total, err := prog.NumCandidates()
		require.NoError(t, err)
		require.Equal(t, 3*3*2*3*2, total)

		for i := 0; i < total; i++ {
			x, err := prog.Decode(i)
			require.NoError(t, err)

			back, err := prog.Encode(x)
			require.NoError(t, err)
			assert.Equal(t, i, back)
		}
	})
}

func TestProgram_DecodeBitOrder(t *testing.T) {
	// Least-significant digit maps to the first asset.
	prog, err := New(testMu, testSigma, 0.5, 2, 1.0, nil)
	require.NoError(t, err)

	x, err := prog.Decode(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0, 0}, x)

	x, err = prog.Decode(6) // binary 00110
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 0, 0}, x)
}

func TestProgram_InfeasibleBudget(t *testing.T) {
	prog, err := New(testMu, testSigma, 0.5, 6, 1.0, nil)
	require.NoError(t, err)

	err = prog.Validate()
	require.Error(t, err)

	var infeasible *InfeasibilityError
	require.True(t, errors.As(err, &infeasible))
	assert.Equal(t, 6, infeasible.Budget)
	assert.Equal(t, 0, infeasible.MinSum)
	assert.Equal(t, 5, infeasible.MaxSum)
}

func TestProgram_FeasibleBudgetWithWiderBounds(t *testing.T) {
	bounds := []Bounds{{0, 2}, {0, 2}, {0, 2}, {0, 2}, {0, 2}}
	prog, err := New(testMu, testSigma, 0.5, 6, 1.0, bounds)
	require.NoError(t, err)

	assert.NoError(t, prog.Validate())
}

func TestProgram_ValidationErrors(t *testing.T) {
	_, err := New(nil, nil, 0.5, 1, 1.0, nil)
	assert.Error(t, err, "empty universe")

	_, err = New(testMu, testSigma[:3], 0.5, 1, 1.0, nil)
	assert.Error(t, err, "covariance dimension mismatch")

	_, err = New(testMu, testSigma, 0, 1, 1.0, nil)
	assert.Error(t, err, "non-positive risk factor")

	_, err = New(testMu, testSigma, 0.5, 1, -1, nil)
	assert.Error(t, err, "negative penalty")

	_, err = New(testMu, testSigma, 0.5, 1, 1.0, []Bounds{{1, 0}, {0, 1}, {0, 1}, {0, 1}, {0, 1}})
	assert.Error(t, err, "inverted bounds")
}

func TestProgram_ClampToBounds(t *testing.T) {
	prog, err := New(testMu, testSigma, 0.5, 2, 1.0, nil)
	require.NoError(t, err)

	x := prog.ClampToBounds([]float64{-0.4, 0.6, 1.7, 0.49, 0.51})
	assert.Equal(t, []int{0, 1, 1, 0, 1}, x)
}

func TestProgram_RelaxedContinuousMatchesDiscrete(t *testing.T) {
	prog, err := New(testMu, testSigma, 0.5, 2, 3.0, nil)
	require.NoError(t, err)

	fn, grad := prog.RelaxedContinuous()

	x := []int{1, 0, 1, 0, 0}
	xf := []float64{1, 0, 1, 0, 0}

	relaxed, err := prog.EvaluateRelaxed(x)
	require.NoError(t, err)
	assert.InDelta(t, relaxed, fn(xf), 1e-12)

	// Gradient against central differences.
	g := make([]float64, len(xf))
	grad(g, xf)
	const h = 1e-6
	for i := range xf {
		xp := make([]float64, len(xf))
		xm := make([]float64, len(xf))
		copy(xp, xf)
		copy(xm, xf)
		xp[i] += h
		xm[i] -= h
		numeric := (fn(xp) - fn(xm)) / (2 * h)
		assert.InDelta(t, numeric, g[i], 1e-5)
	}
}
