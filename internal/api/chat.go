package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atelier-works/concierge/internal/agent"
)

// ChatService processes one user message and returns the assistant's reply.
type ChatService interface {
	ProcessMessage(ctx context.Context, conversationID, message string) (string, error)
}

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	service ChatService
	limiter *RateLimiter
}

// NewChatHandler creates a chat handler. limiter may be nil to disable rate
// limiting (tests).
func NewChatHandler(service ChatService, limiter *RateLimiter) *ChatHandler {
	return &ChatHandler{service: service, limiter: limiter}
}

// RegisterRoutes registers the chat endpoint on the router.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/chat", h.HandleChat)
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
}

// HandleChat processes POST /api/v1/chat. A missing conversation_id starts a
// new conversation under a generated id, returned in the response.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if h.limiter != nil && !h.limiter.Allow(conversationID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded, please slow down")
		return
	}

	response, err := h.service.ProcessMessage(r.Context(), conversationID, req.Message)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyMessage) || errors.Is(err, agent.ErrEmptyConversationID) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	JSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Response:       response,
	})
}
