package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-works/concierge/internal/domain"
	"github.com/atelier-works/concierge/internal/store"
)

// Config holds the tunable knobs of the orchestration loop.
type Config struct {
	MaxIterations  int
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  10,
		RetryAttempts:  3,
		RetryBaseDelay: time.Second,
	}
}

// Validation errors surfaced to the caller before any core logic runs.
var (
	ErrEmptyConversationID = errors.New("conversation id must not be empty")
	ErrEmptyMessage        = errors.New("message must not be empty")
)

// RefusalMessage is returned verbatim when the guardrail filter blocks a
// query.
const RefusalMessage = "I'm sorry, but I can only help with questions about our products, orders, appointments, and services. Is there something along those lines I can help you with?"

const apologyMessage = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."

// Service is the session facade: guardrails, history, orchestration and
// metrics behind one ProcessMessage call. It is safe for concurrent use
// across different conversation ids.
type Service struct {
	repo store.Repository
	loop *Loop
}

// NewService wires the facade from its collaborators.
func NewService(repo store.Repository, gateway Gateway, registry *Registry, cfg Config) *Service {
	return &Service{
		repo: repo,
		loop: NewLoop(gateway, registry, cfg),
	}
}

// ProcessMessage handles one user message end to end and returns the
// assistant's reply. Beyond input validation it never returns an error to
// the caller: any internal failure is logged, recorded in metrics and
// converted into a fixed apology so a broken upstream never leaks raw
// errors to customers.
func (s *Service) ProcessMessage(ctx context.Context, conversationID, message string) (response string, err error) {
	if strings.TrimSpace(conversationID) == "" {
		return "", ErrEmptyConversationID
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while processing message",
				"conversation_id", conversationID,
				"panic", rec)
			s.recordMetrics(ctx, conversationID, start, nil, 0, false)
			response, err = apologyMessage, nil
		}
	}()

	if verdict := CheckGuardrails(message); !verdict.Allowed {
		slog.Info("message blocked by guardrails",
			"conversation_id", conversationID,
			"reason", verdict.Reason)

		s.appendMessage(ctx, conversationID, domain.RoleUser, message)
		s.appendMessage(ctx, conversationID, domain.RoleAssistant, RefusalMessage)
		s.recordMetrics(ctx, conversationID, start, nil, 0, true)
		return RefusalMessage, nil
	}

	previous, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		slog.Error("failed to load conversation history",
			"conversation_id", conversationID,
			"error", err)
		s.recordMetrics(ctx, conversationID, start, nil, 0, false)
		return apologyMessage, nil
	}

	s.appendMessage(ctx, conversationID, domain.RoleUser, message)

	result, err := s.loop.Run(ctx, message, previous)
	if err != nil {
		slog.Error("orchestration failed",
			"conversation_id", conversationID,
			"error", err)
		s.recordMetrics(ctx, conversationID, start, nil, 0, false)
		return apologyMessage, nil
	}

	s.appendMessage(ctx, conversationID, domain.RoleAssistant, result.Response)
	s.recordMetrics(ctx, conversationID, start, result.ToolsUsed, result.Iterations, false)

	slog.Info("message processed",
		"conversation_id", conversationID,
		"latency_ms", time.Since(start).Milliseconds(),
		"iterations", result.Iterations,
		"tools_used", result.ToolsUsed)

	return result.Response, nil
}

// appendMessage persists one turn. Persistence failures are logged but do
// not fail the request; the reply the customer sees matters more than the
// audit trail.
func (s *Service) appendMessage(ctx context.Context, conversationID string, role domain.Role, content string) {
	msg := domain.Message{Role: role, Content: content, CreatedAt: time.Now()}
	if err := s.repo.AppendMessage(ctx, conversationID, msg); err != nil {
		slog.Warn("failed to persist message",
			"conversation_id", conversationID,
			"role", role,
			"error", err)
	}
}

func (s *Service) recordMetrics(ctx context.Context, conversationID string, start time.Time, toolsUsed []string, iterations int, blocked bool) {
	m := domain.MessageMetrics{
		ID:               uuid.NewString(),
		Timestamp:        time.Now(),
		ConversationID:   conversationID,
		LatencyMs:        float64(time.Since(start).Microseconds()) / 1000.0,
		ToolsUsed:        toolsUsed,
		NumIterations:    iterations,
		GuardrailBlocked: blocked,
	}
	if err := s.repo.RecordMetrics(ctx, m); err != nil {
		slog.Warn("failed to record metrics",
			"conversation_id", conversationID,
			"error", err)
	}
}
