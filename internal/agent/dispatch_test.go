package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func mustRegistry(t *testing.T, providers ...Provider) *Registry {
	t.Helper()
	registry, err := NewRegistry(providers...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return registry
}

func decodePayload(t *testing.T, payload string) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("Execute returned invalid JSON %q: %v", payload, err)
	}
	return decoded
}

func TestExecuteUnknownTool(t *testing.T) {
	registry := mustRegistry(t, &fakeProvider{})

	payload := registry.Execute(context.Background(), "nope", nil)
	decoded := decodePayload(t, payload)

	if decoded["error"] != "Unknown tool: nope" {
		t.Errorf("Expected unknown tool error, got %v", decoded)
	}
}

func TestExecuteReturnsStructuredResult(t *testing.T) {
	type record struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	provider := &fakeProvider{tools: []Tool{{
		Name: "fetch",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return record{ID: "R-1", Count: 2}, nil
		},
	}}}
	registry := mustRegistry(t, provider)

	decoded := decodePayload(t, registry.Execute(context.Background(), "fetch", nil))
	if decoded["id"] != "R-1" || decoded["count"] != float64(2) {
		t.Errorf("Expected field mapping of the record, got %v", decoded)
	}
}

func TestExecuteConvertsHandlerError(t *testing.T) {
	provider := &fakeProvider{tools: []Tool{{
		Name: "boom",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("missing required argument: order_id")
		},
	}}}
	registry := mustRegistry(t, provider)

	decoded := decodePayload(t, registry.Execute(context.Background(), "boom", map[string]any{}))
	if decoded["error"] != "missing required argument: order_id" {
		t.Errorf("Expected handler error in payload, got %v", decoded)
	}
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	provider := &fakeProvider{tools: []Tool{{
		Name: "panics",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			panic("boom")
		},
	}}}
	registry := mustRegistry(t, provider)

	decoded := decodePayload(t, registry.Execute(context.Background(), "panics", nil))
	if _, ok := decoded["error"]; !ok {
		t.Errorf("Expected error payload from panicking handler, got %v", decoded)
	}
}

func TestExecuteUnserializableResult(t *testing.T) {
	provider := &fakeProvider{tools: []Tool{{
		Name: "bad_result",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return map[string]any{"ch": make(chan int)}, nil
		},
	}}}
	registry := mustRegistry(t, provider)

	decoded := decodePayload(t, registry.Execute(context.Background(), "bad_result", nil))
	if _, ok := decoded["error"]; !ok {
		t.Errorf("Expected error payload for unserializable result, got %v", decoded)
	}
}
