package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Tool defines a capability the backend may invoke, with one or more
// declared functions.
type Tool interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error)
}

// ToolResult is the outcome of a tool execution. A non-empty Error marks a
// tool-level failure that should be fed back to the backend as text.
type ToolResult struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// ToolFunc adapts a plain function to the Tool interface for single-function tools.
type ToolFunc struct {
	Definition ToolDefinition
	Fn         func(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

func (t ToolFunc) Definitions() []ToolDefinition { return []ToolDefinition{t.Definition} }

func (t ToolFunc) Execute(ctx context.Context, _ string, args json.RawMessage) (ToolResult, error) {
	return t.Fn(ctx, args)
}

// Registry holds the caller-supplied tools and resolves calls by name.
type Registry struct {
	tools []Tool
}

// NewRegistry creates an empty registry.
func NewRegistry(tools ...Tool) *Registry {
	return &Registry{tools: tools}
}

// Add registers a tool.
func (r *Registry) Add(t Tool) {
	r.tools = append(r.tools, t)
}

// Definitions returns the declared schema of every registered tool, in
// registration order. This is what the runner sends with each request.
func (r *Registry) Definitions() []ToolDefinition {
	var defs []ToolDefinition
	for _, t := range r.tools {
		defs = append(defs, t.Definitions()...)
	}
	return defs
}

// Resolve finds the tool declaring the given function name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	for _, t := range r.tools {
		for _, d := range t.Definitions() {
			if d.Name == name {
				return t, true
			}
		}
	}
	return nil, false
}

// Dispatcher executes resolved tool calls and converts every outcome,
// including failures, into a tool-role Turn. One tool's failure never
// aborts the run: a missing handler, malformed arguments, a returned
// error, or a panic all become descriptive error content the backend can
// react to on the next iteration.
type Dispatcher struct {
	registry *Registry
	hooks    RunHooks
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry. hooks may be
// nil; it defaults to NopHooks.
func NewDispatcher(reg *Registry, hooks RunHooks, logger *slog.Logger) *Dispatcher {
	if hooks == nil {
		hooks = NopHooks{}
	}
	if logger == nil {
		logger = nopLogger
	}
	return &Dispatcher{registry: reg, hooks: hooks, logger: logger}
}

// Dispatch executes one tool call and returns its tool-role Turn. The
// OnFunctionCallProcessed hook fires exactly once before returning,
// regardless of success or failure.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, tc ToolCall) Turn {
	content := d.execute(ctx, tc)
	d.hooks.OnFunctionCallProcessed(runID, tc.Name, tc.Arguments, content)
	return ToolResultTurn(tc.ID, tc.Name, content)
}

func (d *Dispatcher) execute(ctx context.Context, tc ToolCall) (content string) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("tool panicked", "tool", tc.Name, "panic", p)
			content = fmt.Sprintf("error: tool %q panic: %v", tc.Name, p)
		}
	}()

	tool, ok := d.registry.Resolve(tc.Name)
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", tc.Name)
	}

	args := json.RawMessage(tc.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if !json.Valid(args) {
		return fmt.Sprintf("error: tool %q called with malformed arguments", tc.Name)
	}

	result, err := tool.Execute(ctx, tc.Name, args)
	if err != nil {
		return "error: " + err.Error()
	}
	if result.Error != "" {
		return "error: " + result.Error
	}
	return result.Content
}
