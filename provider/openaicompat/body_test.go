package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/okonen/relay"
)

func TestBuildBodyRoles(t *testing.T) {
	req := relay.Request{
		Model: "gpt-test",
		Turns: []relay.Turn{
			relay.SystemTurn("be terse"),
			relay.UserTurn("weather?"),
			relay.AssistantCallTurn("checking", []relay.ToolCall{
				{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Paris"}`},
			}),
			relay.ToolResultTurn("call-1", "get_weather", "sunny"),
			relay.AssistantTurn("it is sunny"),
		},
	}

	body := BuildBody(req)

	if body.Model != "gpt-test" {
		t.Fatalf("model = %q", body.Model)
	}
	if len(body.Messages) != 5 {
		t.Fatalf("messages = %d, want 5", len(body.Messages))
	}

	call := body.Messages[2]
	if call.Role != "assistant" || len(call.ToolCalls) != 1 {
		t.Fatalf("assistant call message = %+v", call)
	}
	if call.ToolCalls[0].Type != "function" || call.ToolCalls[0].Function.Arguments != `{"city":"Paris"}` {
		t.Fatalf("tool call = %+v", call.ToolCalls[0])
	}

	toolMsg := body.Messages[3]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call-1" || toolMsg.Name != "get_weather" {
		t.Fatalf("tool message = %+v", toolMsg)
	}
}

func TestBuildBodyToolsAndParams(t *testing.T) {
	temp := 0.2
	seed := 42
	maxTok := 500
	req := relay.Request{
		Model: "gpt-test",
		Turns: []relay.Turn{relay.UserTurn("hi")},
		Tools: []relay.ToolDefinition{{
			Name:        "get_weather",
			Description: "weather lookup",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
		Params: &relay.GenerationParams{
			Temperature:    &temp,
			Seed:           &seed,
			MaxTokens:      &maxTok,
			ResponseFormat: "json_object",
		},
	}

	body := BuildBody(req)

	if len(body.Tools) != 1 || body.Tools[0].Type != "function" {
		t.Fatalf("tools = %+v", body.Tools)
	}
	if body.ToolChoice != "auto" {
		t.Fatalf("tool_choice = %q", body.ToolChoice)
	}
	if body.Temperature == nil || *body.Temperature != 0.2 {
		t.Fatal("temperature not mapped")
	}
	if body.Seed == nil || *body.Seed != 42 {
		t.Fatal("seed not mapped")
	}
	if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format = %+v", body.ResponseFormat)
	}
}

func TestBuildBodyNilParamsOmitted(t *testing.T) {
	body := BuildBody(relay.Request{Model: "m", Turns: []relay.Turn{relay.UserTurn("hi")}})

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{"temperature", "top_p", "seed", "tools", "response_format"} {
		if jsonHasKey(t, raw, field) {
			t.Fatalf("field %q present in %s, want omitted", field, raw)
		}
	}
}

func jsonHasKey(t *testing.T, raw []byte, key string) bool {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	_, ok := m[key]
	return ok
}
