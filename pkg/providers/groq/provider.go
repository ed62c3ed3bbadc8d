// Package groq implements the Groq adapter over the OpenAI-compatible
// codec.
package groq

import (
	"github.com/digitallysavvy/go-llm/pkg/providers/openaicompat"
	"github.com/digitallysavvy/go-llm/pkg/registry"
)

// DefaultBaseURL is the Groq OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// New creates the Groq adapter.
func New() *openaicompat.Adapter {
	return NewWithBaseURL(DefaultBaseURL)
}

// NewWithBaseURL creates the adapter against a custom endpoint.
func NewWithBaseURL(baseURL string) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		ID:      "groq",
		BaseURL: baseURL,
		EnvKey:  "GROQ_API_KEY",
	})
}

func init() {
	_ = registry.Register(New())
}
