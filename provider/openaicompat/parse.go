package openaicompat

import "github.com/okonen/relay"

// ParseResponse converts a wire-format ChatResponse into a relay.Response.
// It extracts content, tool calls, and usage from choices[0]. Tool call
// arguments are passed through exactly as delivered; the dispatcher is
// responsible for rejecting malformed payloads.
func ParseResponse(resp ChatResponse) relay.Response {
	var out relay.Response

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message != nil {
			out.Content = choice.Message.Content
			out.ToolCalls = ParseToolCalls(choice.Message.ToolCalls)
		}
	}

	if resp.Usage != nil {
		out.Usage = relay.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out
}

// ParseToolCalls converts wire tool call requests to relay.ToolCalls.
func ParseToolCalls(tcs []ToolCallRequest) []relay.ToolCall {
	if len(tcs) == 0 {
		return nil
	}
	out := make([]relay.ToolCall, 0, len(tcs))
	for _, tc := range tcs {
		out = append(out, relay.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
