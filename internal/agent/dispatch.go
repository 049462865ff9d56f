package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Handler executes one tool operation with loosely typed arguments and
// returns a JSON-serializable result. A returned error becomes an error
// payload the model can read and react to.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Execute dispatches a tool call by name and always returns a JSON-encoded
// result string. It never panics and never returns a Go error: unknown
// tools, handler failures, and unserializable results all surface as
// {"error": "..."} payloads. This is the isolation boundary that keeps a
// single tool failure from taking down the orchestration loop.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked", "tool", name, "panic", rec)
			result = errorPayload(fmt.Sprintf("tool %s failed unexpectedly", name))
		}
	}()

	handler, ok := r.handlers[name]
	if !ok {
		return errorPayload(fmt.Sprintf("Unknown tool: %s", name))
	}

	out, err := handler(ctx, args)
	if err != nil {
		return errorPayload(err.Error())
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		slog.Error("tool result not serializable", "tool", name, "error", err)
		return errorPayload(fmt.Sprintf("tool %s returned an unserializable result", name))
	}
	return string(encoded)
}

func errorPayload(message string) string {
	encoded, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		// Marshalling a map[string]string cannot fail; keep a literal
		// fallback anyway so Execute stays total.
		return `{"error": "internal error"}`
	}
	return string(encoded)
}
