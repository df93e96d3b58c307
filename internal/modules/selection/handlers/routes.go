package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all selection routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/selection", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/report", h.HandleReport)
		r.Get("/solvers", h.HandleSolvers)
		r.Get("/stream", h.HandleStream)
	})
}
