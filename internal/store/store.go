// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/atelier-works/concierge/internal/domain"
)

// Repository defines the interface for persisting conversations and metrics.
//
// Conversations are append-only message sequences keyed by conversation id.
// Appends must be atomic per conversation id; no ordering is guaranteed
// across different conversations.
type Repository interface {
	// GetConversation retrieves the ordered message history for a conversation.
	// An unknown conversation id yields an empty slice, not an error.
	GetConversation(ctx context.Context, conversationID string) ([]domain.Message, error)

	// AppendMessage appends a message to a conversation's history.
	AppendMessage(ctx context.Context, conversationID string, msg domain.Message) error

	// RecordMetrics appends one message-processing metrics entry.
	RecordMetrics(ctx context.Context, m domain.MessageMetrics) error

	// ConversationMetrics aggregates metrics for a single conversation.
	ConversationMetrics(ctx context.Context, conversationID string) (*domain.ConversationMetrics, error)

	// GlobalMetrics aggregates metrics across all conversations.
	GlobalMetrics(ctx context.Context) (*domain.GlobalMetrics, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
