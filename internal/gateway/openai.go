// Package gateway provides the language model gateway client speaking the
// OpenAI-compatible chat completions protocol.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelier-works/concierge/internal/agent"
	"github.com/atelier-works/concierge/internal/domain"
)

// Client calls an OpenAI-compatible chat completions endpoint. It implements
// agent.Gateway.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a gateway client. baseURL is the API root, e.g.
// "https://api.openai.com/v1"; a trailing slash is tolerated.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the upstream model API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model api error (status %d): %s", e.StatusCode, e.Message)
}

// Wire types for the chat completions protocol.

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []toolDef     `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolDef struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   *string        `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the transcript and tool schemas to the chat completions
// endpoint and returns the model's reply.
func (c *Client) Complete(ctx context.Context, transcript []domain.Message, tools []agent.ToolSchema, toolChoice string) (*agent.Completion, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: toWireMessages(transcript),
	}
	if len(tools) > 0 {
		reqBody.Tools = toToolDefs(tools)
		reqBody.ToolChoice = toolChoice
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model api: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractAPIError(body),
		}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("model response contained no choices")
	}

	msg := decoded.Choices[0].Message
	completion := &agent.Completion{}
	if msg.Content != nil {
		completion.Content = *msg.Content
	}
	for _, tc := range msg.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return completion, nil
}

func toWireMessages(transcript []domain.Message) []chatMessage {
	out := make([]chatMessage, 0, len(transcript))
	for _, msg := range transcript {
		wire := chatMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toToolDefs(tools []agent.ToolSchema) []toolDef {
	defs := make([]toolDef, 0, len(tools))
	for _, schema := range tools {
		properties := make(map[string]any, len(schema.Parameters))
		for _, p := range schema.Parameters {
			properties[p.Name] = map[string]any{
				"type":        string(p.Type),
				"description": p.Description,
			}
		}
		required := schema.Required
		if required == nil {
			required = []string{}
		}
		defs = append(defs, toolDef{
			Type: "function",
			Function: functionDef{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return defs
}

func extractAPIError(body []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no error detail provided"
	}
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
