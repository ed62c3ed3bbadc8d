package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	m, err := ParseModel("anthropic:claude-3-haiku-20240307")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", m.Provider)
	assert.Equal(t, "claude-3-haiku-20240307", m.Model)
	assert.Equal(t, 3, m.MaxRetries)
}

func TestParseModel_ColonInModelName(t *testing.T) {
	// Bedrock model ids contain colons; only the first separates the
	// provider.
	m, err := ParseModel("bedrock:anthropic.claude-3-haiku-20240307-v1:0")
	require.NoError(t, err)
	assert.Equal(t, "bedrock", m.Provider)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", m.Model)
}

func TestParseModel_Invalid(t *testing.T) {
	for _, spec := range []string{"invalid", ":model", "provider:", ""} {
		_, err := ParseModel(spec)
		assert.Error(t, err, "spec %q", spec)
	}
}

func TestModelDefaults(t *testing.T) {
	m := NewModel("openai", "gpt-4o")
	assert.Equal(t, []string{"text"}, m.Modalities.Input)
	assert.Equal(t, []string{"text"}, m.Modalities.Output)
	assert.True(t, m.Capabilities.Temperature)
	assert.False(t, m.Capabilities.Reasoning)
}

func TestModelValidate(t *testing.T) {
	assert.NoError(t, NewModel("openai", "gpt-4o").Validate())

	m := NewModel("openai", "gpt-4o")
	m.MaxRetries = -1
	assert.Error(t, m.Validate())

	assert.Error(t, Model{Provider: "", Model: "x"}.Validate())
	assert.Error(t, Model{Provider: "p", Model: ""}.Validate())
}

func TestModelString(t *testing.T) {
	assert.Equal(t, "groq:llama-3.1-8b-instant", NewModel("groq", "llama-3.1-8b-instant").String())
}
