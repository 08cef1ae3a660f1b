package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const tomlConfig = `
name = "weather-helper"
model = "gpt-4o"
instructions = "You answer weather questions."

[completion]
temperature = 0.2
seed = 42
max_text_messages = 20

[[functions]]
name = "get_weather"
description = "Get weather for a city"

[functions.parameters]
type = "object"
`

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "assistant.toml", tomlConfig)

	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Name != "weather-helper" || a.Model != "gpt-4o" {
		t.Fatalf("assistant = %+v", a)
	}
	if a.Completion == nil || a.Completion.Temperature == nil || *a.Completion.Temperature != 0.2 {
		t.Fatalf("completion = %+v", a.Completion)
	}
	if len(a.Functions) != 1 || a.Functions[0].Name != "get_weather" {
		t.Fatalf("functions = %+v", a.Functions)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "assistant.yaml", `
name: weather-helper
model: gpt-4
instructions: You answer weather questions.
completion:
  top_p: 0.9
functions:
  - name: get_weather
    description: Get weather
    parameters:
      type: object
      properties:
        city: {type: string}
`)

	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Model != "gpt-4" {
		t.Fatalf("model = %q", a.Model)
	}
	if a.Completion.TopP == nil || *a.Completion.TopP != 0.9 {
		t.Fatalf("completion = %+v", a.Completion)
	}

	defs, err := a.ToolDefinitions()
	if err != nil {
		t.Fatalf("ToolDefinitions: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "get_weather" {
		t.Fatalf("defs = %+v", defs)
	}
	if string(defs[0].Parameters) == "" {
		t.Fatal("parameters schema empty")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "assistant.json", `{
  "name": "helper",
  "model": "exotic-model",
  "completion": {"seed": 7}
}`)

	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Completion.Seed == nil || *a.Completion.Seed != 7 {
		t.Fatalf("completion = %+v", a.Completion)
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	path := writeConfig(t, "bad.json", `{"model": "gpt-4"}`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for missing name")
	}

	path = writeConfig(t, "bad2.json", `{"name": "x"}`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for missing model")
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeConfig(t, "assistant.ini", "name=x")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for unsupported extension")
	}
}

func TestConversationTokenLimit(t *testing.T) {
	a := &Assistant{Name: "x", Model: "gpt-4o"}
	if got := a.ConversationTokenLimit(); got != 128000 {
		t.Fatalf("gpt-4o limit = %d", got)
	}

	a.Model = "never-heard-of-it"
	if got := a.ConversationTokenLimit(); got != DefaultTokenLimit {
		t.Fatalf("fallback limit = %d", got)
	}

	a.TokenLimit = 999
	if got := a.ConversationTokenLimit(); got != 999 {
		t.Fatalf("override limit = %d", got)
	}
}

func TestGenerationParamsNilWithoutCompletion(t *testing.T) {
	a := &Assistant{Name: "x", Model: "m"}
	if a.GenerationParams() != nil {
		t.Fatal("want nil params without completion section")
	}
}
