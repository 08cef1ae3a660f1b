package openaicompat

import (
	"github.com/okonen/relay"
)

// BuildBody converts a relay.Request into the wire-format ChatRequest.
func BuildBody(req relay.Request) ChatRequest {
	var msgs []Message

	for _, t := range req.Turns {
		switch {
		case t.Role == relay.RoleAssistant && len(t.ToolCalls) > 0:
			var tcs []ToolCallRequest
			for _, tc := range t.ToolCalls {
				tcs = append(tcs, ToolCallRequest{
					ID:   tc.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			msgs = append(msgs, Message{
				Role:      "assistant",
				Content:   t.Content,
				ToolCalls: tcs,
			})

		case t.Role == relay.RoleTool:
			msgs = append(msgs, Message{
				Role:       "tool",
				Content:    t.Content,
				ToolCallID: t.ToolCallID,
				Name:       t.Name,
			})

		default:
			msgs = append(msgs, Message{
				Role:    string(t.Role),
				Content: t.Content,
			})
		}
	}

	body := ChatRequest{
		Model:    req.Model,
		Messages: msgs,
	}

	if len(req.Tools) > 0 {
		body.Tools = BuildToolDefs(req.Tools)
		body.ToolChoice = "auto"
	}

	if p := req.Params; p != nil {
		body.Temperature = p.Temperature
		body.TopP = p.TopP
		body.FrequencyPenalty = p.FrequencyPenalty
		body.PresencePenalty = p.PresencePenalty
		body.MaxTokens = p.MaxTokens
		body.Seed = p.Seed
		if p.ResponseFormat != "" {
			body.ResponseFormat = &ResponseFormat{Type: p.ResponseFormat}
		}
	}

	return body
}

// BuildToolDefs wraps declared tools in the OpenAI function format.
func BuildToolDefs(defs []relay.ToolDefinition) []Tool {
	out := make([]Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, Tool{
			Type: "function",
			Function: Function{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}
