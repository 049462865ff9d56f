package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atelier-works/concierge/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestAppendAndGetConversation(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "Show me jackets"},
		{Role: domain.RoleAssistant, Content: "We have two."},
		{Role: domain.RoleUser, Content: "Any boots?"},
	}
	for _, msg := range msgs {
		if err := repo.AppendMessage(ctx, "conv-1", msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got, err := repo.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	for i, msg := range got {
		if msg.Role != msgs[i].Role || msg.Content != msgs[i].Content {
			t.Errorf("Message %d mismatch: got %+v", i, msg)
		}
	}
}

func TestGetConversationUnknownID(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetConversation(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(got))
	}
}

func TestConversationsAreIsolated(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.AppendMessage(ctx, "conv-a", domain.Message{Role: domain.RoleUser, Content: "a"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if err := repo.AppendMessage(ctx, "conv-b", domain.Message{Role: domain.RoleUser, Content: "b"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, err := repo.GetConversation(ctx, "conv-a")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(got) != 1 || got[0].Content != "a" {
		t.Errorf("Expected only conv-a messages, got %+v", got)
	}
}

func TestRecordAndAggregateMetrics(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	entries := []domain.MessageMetrics{
		{
			ID: "m-1", ConversationID: "conv-1", Timestamp: time.Now(),
			LatencyMs: 100, ToolsUsed: []string{"get_order"}, NumIterations: 1,
		},
		{
			ID: "m-2", ConversationID: "conv-1", Timestamp: time.Now(),
			LatencyMs: 300, ToolsUsed: []string{"get_order", "search_products"}, NumIterations: 2,
		},
		{
			ID: "m-3", ConversationID: "conv-1", Timestamp: time.Now(),
			LatencyMs: 20, GuardrailBlocked: true,
		},
		{
			ID: "m-4", ConversationID: "conv-2", Timestamp: time.Now(),
			LatencyMs: 50, ToolsUsed: []string{"search_products"}, NumIterations: 1,
		},
	}
	for _, m := range entries {
		if err := repo.RecordMetrics(ctx, m); err != nil {
			t.Fatalf("RecordMetrics failed: %v", err)
		}
	}

	conv, err := repo.ConversationMetrics(ctx, "conv-1")
	if err != nil {
		t.Fatalf("ConversationMetrics failed: %v", err)
	}
	if conv.TotalMessages != 3 {
		t.Errorf("Expected 3 messages, got %d", conv.TotalMessages)
	}
	if conv.AvgLatencyMs != 140 {
		t.Errorf("Expected avg latency 140, got %v", conv.AvgLatencyMs)
	}
	if conv.TotalToolCalls != 3 {
		t.Errorf("Expected 3 tool calls, got %d", conv.TotalToolCalls)
	}
	if conv.ToolsUsage["get_order"] != 2 || conv.ToolsUsage["search_products"] != 1 {
		t.Errorf("Unexpected tools usage: %v", conv.ToolsUsage)
	}
	if conv.GuardrailBlocks != 1 {
		t.Errorf("Expected 1 guardrail block, got %d", conv.GuardrailBlocks)
	}

	global, err := repo.GlobalMetrics(ctx)
	if err != nil {
		t.Fatalf("GlobalMetrics failed: %v", err)
	}
	if global.TotalConversations != 2 {
		t.Errorf("Expected 2 conversations, got %d", global.TotalConversations)
	}
	if global.TotalMessages != 4 {
		t.Errorf("Expected 4 messages, got %d", global.TotalMessages)
	}
	if global.TotalToolCalls != 4 {
		t.Errorf("Expected 4 tool calls, got %d", global.TotalToolCalls)
	}
	if global.ToolsUsage["search_products"] != 2 {
		t.Errorf("Unexpected tools usage: %v", global.ToolsUsage)
	}
}

func TestMetricsEmptyAggregates(t *testing.T) {
	repo := newTestStore(t)

	conv, err := repo.ConversationMetrics(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ConversationMetrics failed: %v", err)
	}
	if conv.TotalMessages != 0 || conv.AvgLatencyMs != 0 {
		t.Errorf("Expected zero aggregates, got %+v", conv)
	}

	global, err := repo.GlobalMetrics(context.Background())
	if err != nil {
		t.Fatalf("GlobalMetrics failed: %v", err)
	}
	if global.TotalConversations != 0 || global.TotalMessages != 0 {
		t.Errorf("Expected zero aggregates, got %+v", global)
	}
}

func TestToolCallIDRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	msg := domain.Message{Role: domain.RoleTool, Content: `{"ok":true}`, ToolCallID: "call_9"}
	if err := repo.AppendMessage(ctx, "conv-1", msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, err := repo.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(got) != 1 || got[0].ToolCallID != "call_9" {
		t.Errorf("Expected tool_call_id preserved, got %+v", got)
	}
}
