package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier-works/concierge/internal/domain"
)

// Completion is one model reply: free-text content, plus any tool calls the
// model wants executed before it can answer.
type Completion struct {
	Content   string
	ToolCalls []domain.ToolCall
}

// ToolChoiceAuto lets the model decide whether to call a tool.
const ToolChoiceAuto = "auto"

// Gateway is the language model collaborator used by the orchestration loop.
// Implementations must support multi-turn transcripts mixing user, assistant
// and tool roles.
type Gateway interface {
	Complete(ctx context.Context, transcript []domain.Message, tools []ToolSchema, toolChoice string) (*Completion, error)
}

const maxIterationsMessage = "I wasn't able to complete your request within a reasonable number of steps. Could you rephrase or simplify it?"

// LoopResult is the outcome of one orchestration run.
type LoopResult struct {
	Response   string
	ToolsUsed  []string // tool names in call order
	Iterations int      // number of tool-executing rounds
}

// Loop drives the bounded tool-calling conversation with the model: it sends
// the transcript plus tool schemas, executes any requested tools in order,
// feeds results back, and repeats until the model produces a final answer or
// the iteration bound is hit.
type Loop struct {
	gateway        Gateway
	registry       *Registry
	maxIterations  int
	retryAttempts  int
	retryBaseDelay time.Duration
	sleep          func(time.Duration) // swapped out in tests
}

// NewLoop builds an orchestration loop. Zero config fields fall back to the
// defaults from DefaultConfig.
func NewLoop(gateway Gateway, registry *Registry, cfg Config) *Loop {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	return &Loop{
		gateway:        gateway,
		registry:       registry,
		maxIterations:  cfg.MaxIterations,
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		sleep:          time.Sleep,
	}
}

// Run processes the latest user message against the prior conversation and
// returns the model's final answer. A gateway failure that survives the
// retry budget is fatal for this invocation and is returned as an error;
// tool failures are not, they surface to the model as error payloads.
func (l *Loop) Run(ctx context.Context, latest string, previous []domain.Message) (*LoopResult, error) {
	transcript := []domain.Message{{
		Role:    domain.RoleUser,
		Content: renderPrompt(latest, previous),
	}}

	var toolsUsed []string
	var lastContent string
	iterations := 0

	for call := 0; call < l.maxIterations; call++ {
		completion, err := l.completeWithRetry(ctx, transcript)
		if err != nil {
			return nil, err
		}

		transcript = append(transcript, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		if len(completion.ToolCalls) == 0 {
			return &LoopResult{
				Response:   completion.Content,
				ToolsUsed:  toolsUsed,
				Iterations: iterations,
			}, nil
		}

		if completion.Content != "" {
			lastContent = completion.Content
		}

		// Tool calls run sequentially, in the order the model requested
		// them, so results line up with call ids in the transcript.
		for _, tc := range completion.ToolCalls {
			result := l.executeCall(ctx, tc)
			toolsUsed = append(toolsUsed, tc.Name)
			transcript = append(transcript, domain.Message{
				Role:       domain.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}

		iterations++
	}

	slog.Warn("orchestration loop exhausted iteration budget",
		"max_iterations", l.maxIterations,
		"tools_used", toolsUsed)

	if lastContent == "" {
		lastContent = maxIterationsMessage
	}
	return &LoopResult{
		Response:   lastContent,
		ToolsUsed:  toolsUsed,
		Iterations: iterations,
	}, nil
}

func (l *Loop) executeCall(ctx context.Context, tc domain.ToolCall) string {
	args, err := parseArguments(tc.Arguments)
	if err != nil {
		slog.Warn("malformed tool call arguments", "tool", tc.Name, "call_id", tc.ID, "error", err)
		return errorPayload(fmt.Sprintf("invalid arguments for %s: %v", tc.Name, err))
	}

	slog.Info("executing tool call", "tool", tc.Name, "call_id", tc.ID)
	return l.registry.Execute(ctx, tc.Name, args)
}

func (l *Loop) completeWithRetry(ctx context.Context, transcript []domain.Message) (*Completion, error) {
	delay := l.retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= l.retryAttempts; attempt++ {
		completion, err := l.gateway.Complete(ctx, transcript, l.registry.Schemas(), ToolChoiceAuto)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if attempt < l.retryAttempts {
			slog.Warn("model call failed, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err)
			l.sleep(delay)
			delay *= 2
		}
	}

	return nil, fmt.Errorf("model call failed after %d attempts: %w", l.retryAttempts, lastErr)
}

// parseArguments decodes a tool call's raw JSON argument payload. An empty
// payload means no arguments.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode argument payload: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
