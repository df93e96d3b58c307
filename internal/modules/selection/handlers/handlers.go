// Package handlers provides HTTP handlers for selection runs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/performance"
	"github.com/quantfolio/quantfolio/internal/modules/qubo"
	"github.com/quantfolio/quantfolio/internal/modules/selection"
	"github.com/quantfolio/quantfolio/internal/modules/solver"
)

// Handler handles selection HTTP requests
type Handler struct {
	service *selection.Service
	log     zerolog.Logger
}

// NewHandler creates a new selection handler
func NewHandler(service *selection.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "selection").Logger(),
	}
}

// HandleRun handles POST /api/selection/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req selection.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleReport handles POST /api/selection/report: the same run, rendered
// as a plain-text report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req selection.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(selection.FormatReport(result))); err != nil {
		h.log.Error().Err(err).Msg("Failed to write report response")
	}
}

// HandleSolvers handles GET /api/selection/solvers
func (h *Handler) HandleSolvers(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"solvers": selection.SolverNames,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// respondError maps domain errors to HTTP statuses. Infeasible budgets and
// degenerate statistics are client problems; non-convergence asks for a
// parameter change rather than a retry.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var infeasible *qubo.InfeasibilityError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, selection.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.As(err, &infeasible):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, performance.ErrDegenerateStatistics):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, solver.ErrNonConvergence):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Selection run failed")
	} else {
		h.log.Warn().Err(err).Msg("Selection run rejected")
	}

	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
