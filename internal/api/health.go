package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelier-works/concierge/internal/store"
)

// HealthHandler reports service and database health.
type HealthHandler struct {
	repo store.Repository
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// RegisterRoutes registers the health endpoint.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/health", h.HandleHealth)
}

// HandleHealth returns 200 when the database is reachable, 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
