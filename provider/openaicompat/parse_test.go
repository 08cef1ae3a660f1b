package openaicompat

import (
	"testing"
)

func TestParseResponseContent(t *testing.T) {
	resp := ChatResponse{
		Choices: []Choice{{Message: &ChoiceMessage{Content: "hello"}}},
		Usage:   &Usage{PromptTokens: 12, CompletionTokens: 3},
	}

	out := ParseResponse(resp)
	if out.Content != "hello" {
		t.Fatalf("content = %q", out.Content)
	}
	if out.Usage.InputTokens != 12 || out.Usage.OutputTokens != 3 {
		t.Fatalf("usage = %+v", out.Usage)
	}
}

func TestParseResponseToolCalls(t *testing.T) {
	resp := ChatResponse{
		Choices: []Choice{{Message: &ChoiceMessage{
			ToolCalls: []ToolCallRequest{{
				ID:       "call-1",
				Function: FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`},
			}},
		}}},
	}

	out := ParseResponse(resp)
	if len(out.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(out.ToolCalls))
	}
	tc := out.ToolCalls[0]
	if tc.ID != "call-1" || tc.Name != "get_weather" || tc.Arguments != `{"city":"Paris"}` {
		t.Fatalf("tool call = %+v", tc)
	}
}

func TestParseResponseMalformedArgumentsPassedThrough(t *testing.T) {
	// Malformed arguments are the dispatcher's problem; parsing must not
	// silently rewrite them.
	resp := ChatResponse{
		Choices: []Choice{{Message: &ChoiceMessage{
			ToolCalls: []ToolCallRequest{{ID: "c", Function: FunctionCall{Name: "f", Arguments: `{"broken"`}}},
		}}},
	}

	out := ParseResponse(resp)
	if out.ToolCalls[0].Arguments != `{"broken"` {
		t.Fatalf("arguments = %q", out.ToolCalls[0].Arguments)
	}
}

func TestParseResponseNoChoices(t *testing.T) {
	out := ParseResponse(ChatResponse{})
	if out.Content != "" || out.ToolCalls != nil {
		t.Fatalf("out = %+v, want zero", out)
	}
}
