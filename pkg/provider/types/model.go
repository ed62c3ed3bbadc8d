package types

import (
	"fmt"
	"strings"
)

// DefaultMaxRetries is applied when a Model does not set MaxRetries.
const DefaultMaxRetries = 3

// Limit describes a model's context and output token limits.
type Limit struct {
	Context int `json:"context"`
	Output  int `json:"output"`
}

// Modalities lists the input and output modalities a model accepts and
// produces ("text", "image", "audio", ...).
type Modalities struct {
	Input  []string `json:"input"`
	Output []string `json:"output"`
}

// Capabilities flags what a model supports.
type Capabilities struct {
	Reasoning   bool `json:"reasoning"`
	ToolCall    bool `json:"tool_call"`
	Temperature bool `json:"temperature"`
	Attachment  bool `json:"attachment"`
}

// Cost carries per-token prices in USD per million tokens.
type Cost struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Model identifies a provider model plus optional runtime parameters.
// Metadata fields (Limit, Modalities, Capabilities, Cost) are populated when
// the model is resolved through the registry's catalog.
type Model struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	MaxRetries  int      `json:"maxRetries"`

	Limit        Limit        `json:"limit"`
	Modalities   Modalities   `json:"modalities"`
	Capabilities Capabilities `json:"capabilities"`
	Cost         Cost         `json:"cost"`
}

// ParseModel parses a "provider:model" spec string. The provider part must
// be a non-empty identifier and the model part a non-empty string.
func ParseModel(spec string) (Model, error) {
	idx := strings.Index(spec, ":")
	if idx <= 0 || idx == len(spec)-1 {
		return Model{}, fmt.Errorf("invalid model spec %q (expected \"provider:model\")", spec)
	}
	m := Model{
		Provider:   spec[:idx],
		Model:      spec[idx+1:],
		MaxRetries: DefaultMaxRetries,
	}
	return m.withDefaults(), nil
}

// NewModel builds a Model with defaults applied.
func NewModel(providerID, modelID string) Model {
	return Model{Provider: providerID, Model: modelID, MaxRetries: DefaultMaxRetries}.withDefaults()
}

// withDefaults fills absent metadata per the boundary rules: text-only
// modalities and temperature-only capabilities.
func (m Model) withDefaults() Model {
	if len(m.Modalities.Input) == 0 {
		m.Modalities.Input = []string{"text"}
	}
	if len(m.Modalities.Output) == 0 {
		m.Modalities.Output = []string{"text"}
	}
	if !m.Capabilities.Reasoning && !m.Capabilities.ToolCall && !m.Capabilities.Attachment {
		m.Capabilities.Temperature = true
	}
	return m
}

// Validate checks the model invariants.
func (m Model) Validate() error {
	if m.Provider == "" {
		return fmt.Errorf("model provider cannot be empty")
	}
	if m.Model == "" {
		return fmt.Errorf("model id cannot be empty")
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0, got %d", m.MaxRetries)
	}
	return nil
}

// String returns the "provider:model" spec form.
func (m Model) String() string {
	return m.Provider + ":" + m.Model
}
