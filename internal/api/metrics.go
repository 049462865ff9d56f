package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelier-works/concierge/internal/store"
)

// MetricsHandler serves metrics aggregates and conversation history reads.
type MetricsHandler struct {
	repo store.Repository
}

// NewMetricsHandler creates a metrics handler.
func NewMetricsHandler(repo store.Repository) *MetricsHandler {
	return &MetricsHandler{repo: repo}
}

// RegisterRoutes registers the metrics and conversation endpoints.
func (h *MetricsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/metrics", h.HandleGlobalMetrics)
	r.Get("/api/v1/metrics/{conversationID}", h.HandleConversationMetrics)
	r.Get("/api/v1/conversations/{conversationID}/messages", h.HandleConversationMessages)
}

// HandleGlobalMetrics returns aggregates across all conversations.
func (h *MetricsHandler) HandleGlobalMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.repo.GlobalMetrics(r.Context())
	if err != nil {
		slog.Error("failed to aggregate global metrics", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}
	JSON(w, http.StatusOK, metrics)
}

// HandleConversationMetrics returns aggregates for one conversation.
func (h *MetricsHandler) HandleConversationMetrics(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	metrics, err := h.repo.ConversationMetrics(r.Context(), conversationID)
	if err != nil {
		slog.Error("failed to aggregate conversation metrics",
			"conversation_id", conversationID,
			"error", err)
		Error(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}
	JSON(w, http.StatusOK, metrics)
}

// HandleConversationMessages returns the stored message history of a
// conversation. An unknown conversation yields an empty list.
func (h *MetricsHandler) HandleConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.repo.GetConversation(r.Context(), conversationID)
	if err != nil {
		slog.Error("failed to load conversation messages",
			"conversation_id", conversationID,
			"error", err)
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        messages,
	})
}
