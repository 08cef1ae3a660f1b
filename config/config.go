// Package config loads assistant configuration from TOML, YAML, or JSON.
//
// The configuration declares everything a session needs besides the live
// requester handle: the assistant's name, model, instructions, declared
// tool schemas, completion settings, and conversation limits.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/okonen/relay"
)

// modelTokenLimits maps known model identities to their conversation
// token budget. Models not listed fall back to DefaultTokenLimit.
var modelTokenLimits = map[string]int{
	"gpt-4o": 128000,
	"gpt-4":  8192,
	"gpt-3":  2048,
}

// DefaultTokenLimit is the conversation token budget for unknown models.
const DefaultTokenLimit = 4096

// Assistant is one assistant's declared configuration.
type Assistant struct {
	Name         string         `toml:"name" yaml:"name" json:"name"`
	Model        string         `toml:"model" yaml:"model" json:"model"`
	Instructions string         `toml:"instructions" yaml:"instructions" json:"instructions"`
	Functions    []FunctionSpec `toml:"functions" yaml:"functions" json:"functions"`
	Completion   *Completion    `toml:"completion" yaml:"completion" json:"completion"`
	// TokenLimit overrides the model-derived conversation budget when > 0.
	TokenLimit int `toml:"token_limit" yaml:"token_limit" json:"token_limit"`
}

// FunctionSpec declares one callable function's schema.
type FunctionSpec struct {
	Name        string `toml:"name" yaml:"name" json:"name"`
	Description string `toml:"description" yaml:"description" json:"description"`
	// Parameters is the JSON Schema for the function's arguments, carried
	// as a free-form map so it round-trips through all three formats.
	Parameters map[string]any `toml:"parameters" yaml:"parameters" json:"parameters"`
}

// Completion holds the sampling settings sent with every request. Nil
// pointers mean "backend default", matching relay.GenerationParams.
type Completion struct {
	Temperature      *float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
	TopP             *float64 `toml:"top_p" yaml:"top_p" json:"top_p"`
	FrequencyPenalty *float64 `toml:"frequency_penalty" yaml:"frequency_penalty" json:"frequency_penalty"`
	PresencePenalty  *float64 `toml:"presence_penalty" yaml:"presence_penalty" json:"presence_penalty"`
	MaxTokens        *int     `toml:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	Seed             *int     `toml:"seed" yaml:"seed" json:"seed"`
	ResponseFormat   string   `toml:"response_format" yaml:"response_format" json:"response_format"`
	// MaxTextMessages bounds how many stored turns a resumed run loads.
	MaxTextMessages int `toml:"max_text_messages" yaml:"max_text_messages" json:"max_text_messages"`
}

// Load reads an assistant configuration file, picking the decoder by
// extension (.toml, .yaml/.yml, or .json).
func Load(path string) (*Assistant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var a Assistant
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}

	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Assistant) validate() error {
	if a.Name == "" {
		return fmt.Errorf("config missing assistant name")
	}
	if a.Model == "" {
		return fmt.Errorf("config missing model")
	}
	for _, f := range a.Functions {
		if f.Name == "" {
			return fmt.Errorf("function declaration missing name")
		}
	}
	return nil
}

// ConversationTokenLimit returns the token budget for the configured
// model: an explicit override, the known per-model limit, or
// DefaultTokenLimit.
func (a *Assistant) ConversationTokenLimit() int {
	if a.TokenLimit > 0 {
		return a.TokenLimit
	}
	if limit, ok := modelTokenLimits[a.Model]; ok {
		return limit
	}
	return DefaultTokenLimit
}

// GenerationParams converts the completion settings for the requester.
// Returns nil when no completion section is configured.
func (a *Assistant) GenerationParams() *relay.GenerationParams {
	c := a.Completion
	if c == nil {
		return nil
	}
	return &relay.GenerationParams{
		Temperature:      c.Temperature,
		TopP:             c.TopP,
		FrequencyPenalty: c.FrequencyPenalty,
		PresencePenalty:  c.PresencePenalty,
		MaxTokens:        c.MaxTokens,
		Seed:             c.Seed,
		ResponseFormat:   c.ResponseFormat,
	}
}

// ToolDefinitions converts the declared function schemas for the request
// tool list.
func (a *Assistant) ToolDefinitions() ([]relay.ToolDefinition, error) {
	var defs []relay.ToolDefinition
	for _, f := range a.Functions {
		params := f.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("function %q parameters: %w", f.Name, err)
		}
		defs = append(defs, relay.ToolDefinition{
			Name:        f.Name,
			Description: f.Description,
			Parameters:  raw,
		})
	}
	return defs, nil
}
