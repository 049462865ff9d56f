package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/atelier-works/concierge/internal/domain"
)

// scriptedGateway returns canned completions in order and records every
// transcript it was called with.
type scriptedGateway struct {
	script      []func() (*Completion, error)
	calls       int
	transcripts [][]domain.Message
}

func (g *scriptedGateway) Complete(_ context.Context, transcript []domain.Message, _ []ToolSchema, _ string) (*Completion, error) {
	cp := append([]domain.Message(nil), transcript...)
	g.transcripts = append(g.transcripts, cp)

	var step func() (*Completion, error)
	if g.calls < len(g.script) {
		step = g.script[g.calls]
	} else {
		step = g.script[len(g.script)-1]
	}
	g.calls++
	return step()
}

func reply(content string, calls ...domain.ToolCall) func() (*Completion, error) {
	return func() (*Completion, error) {
		return &Completion{Content: content, ToolCalls: calls}, nil
	}
}

func fail(message string) func() (*Completion, error) {
	return func() (*Completion, error) { return nil, errors.New(message) }
}

func echoRegistry(t *testing.T) *Registry {
	t.Helper()
	provider := &fakeProvider{tools: []Tool{{
		Name:   "echo",
		Params: []Param{{Name: "text", Type: TypeString}},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			text, err := stringFromArgs(args, "text")
			if err != nil {
				return nil, err
			}
			return map[string]string{"echo": text}, nil
		},
	}}}
	return mustRegistry(t, provider)
}

func stringFromArgs(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", name)
	}
	return s, nil
}

func testLoop(t *testing.T, gw Gateway, cfg Config) *Loop {
	t.Helper()
	loop := NewLoop(gw, echoRegistry(t), cfg)
	loop.sleep = func(time.Duration) {}
	return loop
}

func TestLoopDirectAnswer(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("Happy to help!"),
	}}
	loop := testLoop(t, gw, Config{})

	result, err := loop.Run(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Response != "Happy to help!" {
		t.Errorf("Expected direct answer, got %q", result.Response)
	}
	if result.Iterations != 0 || len(result.ToolsUsed) != 0 {
		t.Errorf("Expected no tool rounds, got iterations=%d tools=%v", result.Iterations, result.ToolsUsed)
	}
	if gw.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", gw.calls)
	}
}

func TestLoopSingleToolRound(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("", domain.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text":"hi"}`}),
		reply("The echo said hi."),
	}}
	loop := testLoop(t, gw, Config{})

	result, err := loop.Run(context.Background(), "echo hi", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Response != "The echo said hi." {
		t.Errorf("Unexpected response: %q", result.Response)
	}
	if result.Iterations != 1 {
		t.Errorf("Expected 1 tool round, got %d", result.Iterations)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0] != "echo" {
		t.Errorf("Expected tools_used [echo], got %v", result.ToolsUsed)
	}

	// Second call sees user -> assistant(tool_call) -> tool(result).
	second := gw.transcripts[1]
	if len(second) != 3 {
		t.Fatalf("Expected transcript of 3 messages, got %d", len(second))
	}
	if second[1].Role != domain.RoleAssistant || len(second[1].ToolCalls) != 1 {
		t.Errorf("Expected assistant tool-call message, got %+v", second[1])
	}
	if second[2].Role != domain.RoleTool || second[2].ToolCallID != "call_1" {
		t.Errorf("Expected tool message tagged call_1, got %+v", second[2])
	}
	if !strings.Contains(second[2].Content, `"echo":"hi"`) {
		t.Errorf("Expected tool result payload, got %q", second[2].Content)
	}
}

func TestLoopToolResultsKeepCallOrder(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("",
			domain.ToolCall{ID: "call_a", Name: "echo", Arguments: `{"text":"first"}`},
			domain.ToolCall{ID: "call_b", Name: "echo", Arguments: `{"text":"second"}`},
		),
		reply("done"),
	}}
	loop := testLoop(t, gw, Config{})

	result, err := loop.Run(context.Background(), "echo twice", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.ToolsUsed) != 2 {
		t.Fatalf("Expected 2 tool calls, got %v", result.ToolsUsed)
	}

	second := gw.transcripts[1]
	if len(second) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(second))
	}
	if second[2].ToolCallID != "call_a" || second[3].ToolCallID != "call_b" {
		t.Errorf("Expected results in request order, got %q then %q",
			second[2].ToolCallID, second[3].ToolCallID)
	}
}

func TestLoopMalformedArgumentsSurfaceAsToolError(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("", domain.ToolCall{ID: "call_1", Name: "echo", Arguments: `{not json`}),
		reply("recovered"),
	}}
	loop := testLoop(t, gw, Config{})

	result, err := loop.Run(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("Expected malformed arguments to stay local, got %v", err)
	}
	if result.Response != "recovered" {
		t.Errorf("Unexpected response: %q", result.Response)
	}

	toolMsg := gw.transcripts[1][2]
	if !strings.Contains(toolMsg.Content, "invalid arguments") {
		t.Errorf("Expected invalid-arguments payload, got %q", toolMsg.Content)
	}
}

func TestLoopTerminatesAtIterationBound(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("", domain.ToolCall{ID: "call_n", Name: "echo", Arguments: `{"text":"again"}`}),
	}}
	loop := testLoop(t, gw, Config{MaxIterations: 4})

	result, err := loop.Run(context.Background(), "never stops", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if gw.calls != 4 {
		t.Errorf("Expected at most 4 model calls, got %d", gw.calls)
	}
	if result.Response != maxIterationsMessage {
		t.Errorf("Expected exhaustion fallback, got %q", result.Response)
	}
}

func TestLoopExhaustionReturnsLastContent(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("Working on it...", domain.ToolCall{ID: "c", Name: "echo", Arguments: `{"text":"x"}`}),
	}}
	loop := testLoop(t, gw, Config{MaxIterations: 2})

	result, err := loop.Run(context.Background(), "never stops", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Response != "Working on it..." {
		t.Errorf("Expected last assistant content, got %q", result.Response)
	}
}

func TestLoopRetriesModelFailures(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		fail("transient"),
		fail("transient"),
		reply("third time lucky"),
	}}
	loop := testLoop(t, gw, Config{RetryAttempts: 3, RetryBaseDelay: time.Millisecond})

	result, err := loop.Run(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Expected retry to recover, got %v", err)
	}
	if result.Response != "third time lucky" {
		t.Errorf("Unexpected response: %q", result.Response)
	}
	if gw.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", gw.calls)
	}
}

func TestLoopRetryExhaustionIsFatal(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		fail("down"),
	}}
	loop := testLoop(t, gw, Config{RetryAttempts: 3, RetryBaseDelay: time.Millisecond})

	_, err := loop.Run(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("Expected fatal error after retry budget, got nil")
	}
	if gw.calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", gw.calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Expected attempt count in error, got %v", err)
	}
}

func TestLoopSeedsSingleRenderedPrompt(t *testing.T) {
	gw := &scriptedGateway{script: []func() (*Completion, error){
		reply("ok"),
	}}
	loop := testLoop(t, gw, Config{})

	previous := []domain.Message{
		{Role: domain.RoleUser, Content: "Show me jackets"},
		{Role: domain.RoleAssistant, Content: "We have two jackets."},
	}
	if _, err := loop.Run(context.Background(), "what about boots?", previous); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	seed := gw.transcripts[0]
	if len(seed) != 1 || seed[0].Role != domain.RoleUser {
		t.Fatalf("Expected single user seed message, got %+v", seed)
	}
	for _, fragment := range []string{"Customer: Show me jackets", "Concierge: We have two jackets.", "Customer message: what about boots?"} {
		if !strings.Contains(seed[0].Content, fragment) {
			t.Errorf("Expected prompt to contain %q", fragment)
		}
	}
}
