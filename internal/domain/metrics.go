package domain

import (
	"time"
)

// MessageMetrics records one ProcessMessage invocation. Entries are written
// once and never updated.
type MessageMetrics struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	ConversationID   string    `json:"conversation_id"`
	LatencyMs        float64   `json:"latency_ms"`
	ToolsUsed        []string  `json:"tools_used"`
	NumIterations    int       `json:"num_iterations"`
	GuardrailBlocked bool      `json:"guardrail_blocked"`
}

// ConversationMetrics aggregates message metrics for one conversation.
type ConversationMetrics struct {
	ConversationID  string         `json:"conversation_id"`
	TotalMessages   int            `json:"total_messages"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	TotalToolCalls  int            `json:"total_tool_calls"`
	ToolsUsage      map[string]int `json:"tools_usage"`
	GuardrailBlocks int            `json:"guardrail_blocks"`
}

// GlobalMetrics aggregates message metrics across all conversations.
type GlobalMetrics struct {
	TotalConversations int            `json:"total_conversations"`
	TotalMessages      int            `json:"total_messages"`
	AvgLatencyMs       float64        `json:"avg_latency_ms"`
	TotalToolCalls     int            `json:"total_tool_calls"`
	ToolsUsage         map[string]int `json:"tools_usage"`
	GuardrailBlocks    int            `json:"guardrail_blocks"`
}
