// Package domain contains core domain types for the concierge application.
package domain

import (
	"time"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool marks a tool execution result fed back to the model.
	RoleTool Role = "tool"
)

// ToolCall is a single tool invocation requested by the model.
// Arguments is the raw JSON payload as returned by the model; it is parsed
// lazily at dispatch time so a malformed payload surfaces as a tool error
// rather than a transcript failure.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one turn in a conversation transcript. Messages are append-only:
// once stored they are never mutated.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitzero"`
}
