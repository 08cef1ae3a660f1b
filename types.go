package relay

import (
	"encoding/json"
	"fmt"
)

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message in the conversation history.
//
// ToolCallID and Name are set only on tool-role turns; ToolCalls only on
// assistant turns that request calls. Validate enforces this shape so that
// malformed turns are rejected at construction rather than discovered when
// the request body is built.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Validate checks that role-specific fields are consistent with the role.
func (t Turn) Validate() error {
	switch t.Role {
	case RoleSystem, RoleUser:
		if t.ToolCallID != "" || len(t.ToolCalls) > 0 {
			return fmt.Errorf("%s turn carries tool fields", t.Role)
		}
	case RoleAssistant:
		if t.ToolCallID != "" {
			return fmt.Errorf("assistant turn carries tool_call_id")
		}
	case RoleTool:
		if t.ToolCallID == "" {
			return fmt.Errorf("tool turn missing tool_call_id")
		}
		if len(t.ToolCalls) > 0 {
			return fmt.Errorf("tool turn carries tool_calls")
		}
	default:
		return fmt.Errorf("unknown role %q", t.Role)
	}
	return nil
}

// ToolCall is a complete tool invocation requested by the backend.
// Arguments is the raw argument payload as delivered on the wire; it is
// expected to be a JSON object once the call is fully assembled, but the
// dispatcher re-checks that before parsing.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallDelta is one streamed fragment of a tool call. Index identifies
// which call in the response it belongs to; ID is present only on the
// fragment that opens an index. Name and Arguments are partial and must be
// appended to the running buffers for that index.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Delta is one incremental fragment of a streamed response. Either field
// may be empty on a given event.
type Delta struct {
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolDefinition declares a callable tool to the backend.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// GenerationParams holds sampling parameters for a completion request.
// Nil pointers mean "use the backend default".
type GenerationParams struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	ResponseFormat   string   `json:"response_format,omitempty"` // "" = backend default, e.g. "json_object"
}

// Request is one completion request issued by the runner.
type Request struct {
	Model  string            `json:"model"`
	Turns  []Turn            `json:"turns"`
	Tools  []ToolDefinition  `json:"tools,omitempty"`
	Params *GenerationParams `json:"params,omitempty"`
}

// Response is a complete (non-streamed) backend answer.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Usage contains token usage reported by the backend.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- Turn constructors ---

func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: text}
}

func SystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Content: text}
}

func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: text}
}

// AssistantCallTurn records the backend's request to invoke tools.
func AssistantCallTurn(content string, calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultTurn carries one tool's result (or error description) back to
// the backend.
func ToolResultTurn(callID, name, content string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}
