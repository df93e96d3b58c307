package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/modules/performance"
	"github.com/quantfolio/quantfolio/internal/modules/selection"
	"github.com/quantfolio/quantfolio/internal/modules/statistics"
)

type stubStats struct {
	est *statistics.Estimates
}

func (s *stubStats) Estimate(symbols []string, lookbackDays int) (*statistics.Estimates, error) {
	return s.est, nil
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	est := &statistics.Estimates{
		Symbols: []string{"AAA", "BBB", "CCC"},
		Mu:      []float64{0.004, 0.002, 0.003},
		Cov: [][]float64{
			{0.00004, 0.00001, 0.000005},
			{0.00001, 0.00005, 0.000004},
			{0.000005, 0.000004, 0.00008},
		},
		Returns: map[string][]float64{
			"AAA": {0.010, -0.004, 0.006, 0.012},
			"BBB": {0.004, 0.009, -0.006, 0.002},
			"CCC": {-0.002, 0.015, 0.004, -0.008},
		},
	}

	evaluator := performance.NewEvaluator(252, zerolog.Nop())
	service := selection.NewService(&stubStats{est: est}, evaluator, zerolog.Nop())
	handler := NewHandler(service, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleRun(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/selection/run", selection.Request{
		Symbols:    []string{"AAA", "BBB", "CCC"},
		RiskFactor: 0.5,
		Budget:     2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data selection.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.NotEmpty(t, response.Data.RunID)
	assert.Len(t, response.Data.Assignment, 3)
	assert.Len(t, response.Data.Selected, 2)
	assert.NotNil(t, response.Data.UniverseMetrics)
}

func TestHandleRun_InvalidBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/selection/run", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_InvalidRequest(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/selection/run", selection.Request{
		Symbols:    []string{"AAA"},
		RiskFactor: 0.5,
		Budget:     1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_InfeasibleBudget(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/selection/run", selection.Request{
		Symbols:    []string{"AAA", "BBB", "CCC"},
		RiskFactor: 0.5,
		Budget:     5,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "infeasible")
}

func TestHandleReport(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/selection/report", selection.Request{
		Symbols:    []string{"AAA", "BBB", "CCC"},
		RiskFactor: 0.5,
		Budget:     2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Portfolio Selection Report")
}

func TestHandleSolvers(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/selection/solvers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Solvers []string `json:"solvers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, selection.SolverNames, response.Data.Solvers)
}
