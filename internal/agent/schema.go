// Package agent implements the concierge agent: input guardrails, the tool
// schema registry, tool dispatch, and the bounded orchestration loop.
package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// ParamType is a JSON-schema primitive type for a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeNull    ParamType = "null"
)

// Param declares one formal parameter of a tool operation. A parameter is
// required exactly when it has no default value.
type Param struct {
	Name       string
	Type       ParamType
	HasDefault bool
}

// Tool pairs a callable operation with its declarative schema descriptor.
// Doc is authored in the same shape as a Google-style docstring; the
// registry splits it into a tool description and per-parameter descriptions
// at startup (see parseDoc).
type Tool struct {
	Name    string
	Doc     string
	Params  []Param
	Handler Handler
}

// Provider exposes a set of named tool operations for registration.
type Provider interface {
	Tools() []Tool
}

// SchemaParameter is one parameter entry of a generated ToolSchema.
type SchemaParameter struct {
	Name        string
	Type        ParamType
	Description string
}

// ToolSchema is the structured description of one callable operation,
// presented to the model so it can request calls.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []SchemaParameter // declaration order, stable across runs
	Required    []string
}

// Registry holds the generated tool schemas and the handlers they dispatch
// to. It is built once at startup and read-only afterwards.
type Registry struct {
	schemas  []ToolSchema
	handlers map[string]Handler
}

// NewRegistry generates tool schemas for every operation exposed by the
// given providers, in provider order. A duplicate tool name across providers
// is a startup defect and fails registration.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler)}

	for _, provider := range providers {
		for _, tool := range provider.Tools() {
			// Underscore-prefixed names are internal helpers, never exposed.
			if tool.Name == "" || strings.HasPrefix(tool.Name, "_") {
				continue
			}
			if _, exists := r.handlers[tool.Name]; exists {
				return nil, fmt.Errorf("tool %s already registered", tool.Name)
			}
			if tool.Handler == nil {
				return nil, fmt.Errorf("tool %s has no handler", tool.Name)
			}

			schema, err := buildSchema(tool)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
			}

			r.schemas = append(r.schemas, schema)
			r.handlers[tool.Name] = tool.Handler
		}
	}

	return r, nil
}

// Schemas returns the generated schemas in registration order.
func (r *Registry) Schemas() []ToolSchema {
	return r.schemas
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for _, s := range r.schemas {
		names = append(names, s.Name)
	}
	return names
}

func buildSchema(tool Tool) (ToolSchema, error) {
	description, paramDescs := parseDoc(tool.Doc)
	if description == "" {
		description = fmt.Sprintf("Call the %s function", tool.Name)
	}

	schema := ToolSchema{
		Name:        tool.Name,
		Description: description,
		Required:    []string{},
	}

	seen := make(map[string]bool, len(tool.Params))
	for _, p := range tool.Params {
		if p.Name == "" {
			return ToolSchema{}, fmt.Errorf("parameter with empty name")
		}
		if seen[p.Name] {
			return ToolSchema{}, fmt.Errorf("duplicate parameter %s", p.Name)
		}
		seen[p.Name] = true

		desc, ok := paramDescs[p.Name]
		if !ok {
			desc = fmt.Sprintf("The %s parameter", p.Name)
		}
		schema.Parameters = append(schema.Parameters, SchemaParameter{
			Name:        p.Name,
			Type:        normalizeType(p.Type),
			Description: desc,
		})
		if !p.HasDefault {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	return schema, nil
}

// normalizeType maps a declared parameter type onto a JSON-schema primitive.
// Unknown or unspecified types default to string.
func normalizeType(t ParamType) ParamType {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject, TypeNull:
		return t
	default:
		return TypeString
	}
}

var paramLineRe = regexp.MustCompile(`^(\w+):\s*(.+)$`)

// parseDoc splits a Google-style doc text into the main description and a
// map of parameter descriptions. Section headers "Args:", "Returns:",
// "Raises:" and "Business Logic:" act as boundaries; lines under "Args:"
// matching "name: description" populate the map, and unmatched continuation
// lines are appended to the previous parameter's description.
func parseDoc(doc string) (string, map[string]string) {
	if doc == "" {
		return "", map[string]string{}
	}

	var descriptionLines []string
	paramDescs := map[string]string{}
	section := "description"
	currentParam := ""

	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "Args:"):
			section = "args"
			continue
		case strings.HasPrefix(line, "Returns:"),
			strings.HasPrefix(line, "Raises:"),
			strings.HasPrefix(line, "Business Logic:"):
			section = "other"
			continue
		}

		switch section {
		case "description":
			if line != "" {
				descriptionLines = append(descriptionLines, line)
			}
		case "args":
			if m := paramLineRe.FindStringSubmatch(line); m != nil {
				currentParam = m[1]
				paramDescs[currentParam] = m[2]
			} else if currentParam != "" && line != "" {
				paramDescs[currentParam] += " " + line
			}
		}
	}

	return strings.Join(descriptionLines, " "), paramDescs
}
