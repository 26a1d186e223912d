package worker

import (
	"context"
	"fmt"
)

// ToolCall is one tool invocation requested by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolHandler implements one tool. It must not abort the ReAct loop on
// error: failures are converted to a text turn by the runtime instead.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// ToolSchema describes a tool for the LLM's function-calling surface.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// Tool pairs a schema with its handler.
type Tool struct {
	Schema  ToolSchema
	Handler ToolHandler
}

// Registry holds the tools available to one worker's ReAct loop.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry constructs an empty tool Registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Schema.Name] = tool
}

// Schemas returns every registered tool's schema, for the LLM request.
func (r *Registry) Schemas() []ToolSchema {
	schemas := make([]ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, t.Schema)
	}
	return schemas
}

// Len reports how many tools are registered.
func (r *Registry) Len() int { return len(r.tools) }

// Execute runs the named tool's handler. An unknown tool name, any
// handler error and a handler panic all produce an error-payload turn
// rather than a Go error, per spec §4.10 — the model sees the failure and
// can recover.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (turn string) {
	tool, ok := r.tools[call.Name]
	if !ok {
		return asToolTurn(call.Name, NewToolError(fmt.Sprintf("unknown tool: %s", call.Name)))
	}
	defer func() {
		if p := recover(); p != nil {
			turn = asToolTurn(call.Name, NewToolError(fmt.Sprintf("tool panicked: %v", p)))
		}
	}()
	result, err := tool.Handler(ctx, call.Arguments)
	if err != nil {
		return asToolTurn(call.Name, NewToolErrorWithCause(err.Error(), err))
	}
	return result
}
