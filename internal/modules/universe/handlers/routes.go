package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Get("/assets", h.HandleListAssets)
		r.Post("/assets", h.HandleAddAsset)
		r.Get("/prices/{symbol}", h.HandleGetPrices)
		r.Post("/sync", h.HandleSyncPrices)
	})
}
