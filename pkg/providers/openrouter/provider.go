// Package openrouter implements the OpenRouter adapter over the
// OpenAI-compatible codec.
package openrouter

import (
	"github.com/digitallysavvy/go-llm/pkg/providers/openaicompat"
	"github.com/digitallysavvy/go-llm/pkg/registry"
)

// DefaultBaseURL is the OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// New creates the OpenRouter adapter.
func New() *openaicompat.Adapter {
	return NewWithBaseURL(DefaultBaseURL)
}

// NewWithBaseURL creates the adapter against a custom endpoint.
func NewWithBaseURL(baseURL string) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		ID:      "openrouter",
		BaseURL: baseURL,
		EnvKey:  "OPENROUTER_API_KEY",
		Headers: map[string]string{
			// OpenRouter attributes traffic by these headers.
			"HTTP-Referer": "https://github.com/digitallysavvy/go-llm",
			"X-Title":      "go-llm",
		},
	})
}

func init() {
	_ = registry.Register(New())
}
