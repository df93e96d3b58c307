// Package handlers provides HTTP handlers for universe management.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/universe"
)

// Handler handles universe HTTP requests
type Handler struct {
	repo        *universe.PriceRepository
	syncTrigger func() error
	log         zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(repo *universe.PriceRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "universe").Logger(),
	}
}

// SetSyncTrigger registers the scheduler's manual-run hook. Called after the
// scheduler is wired in main.
func (h *Handler) SetSyncTrigger(trigger func() error) {
	h.syncTrigger = trigger
}

// HandleListAssets handles GET /api/universe/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.ListAssets()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		http.Error(w, "Failed to list assets", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"assets": assets,
			"count":  len(assets),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleAddAsset handles POST /api/universe/assets
func (h *Handler) HandleAddAsset(w http.ResponseWriter, r *http.Request) {
	var asset universe.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	asset.Symbol = strings.ToUpper(strings.TrimSpace(asset.Symbol))
	if asset.Symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertAsset(asset); err != nil {
		h.log.Error().Err(err).Str("symbol", asset.Symbol).Msg("Failed to upsert asset")
		http.Error(w, "Failed to store asset", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": asset,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPrices handles GET /api/universe/prices/{symbol}
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	prices, err := h.repo.GetDailyPrices(symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get prices")
		http.Error(w, "Failed to get prices", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"prices": prices,
			"count":  len(prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSyncPrices handles POST /api/universe/sync
func (h *Handler) HandleSyncPrices(w http.ResponseWriter, r *http.Request) {
	if h.syncTrigger == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Price sync job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual price sync triggered")

	if err := h.syncTrigger(); err != nil {
		h.log.Error().Err(err).Msg("Failed to trigger price sync")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Price sync triggered successfully",
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
