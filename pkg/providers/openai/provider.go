// Package openai implements the OpenAI Chat Completions adapter.
package openai

import (
	"strings"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providers/openaicompat"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/translate"
	"github.com/digitallysavvy/go-llm/pkg/registry"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// New creates the OpenAI adapter.
func New() *openaicompat.Adapter {
	return NewWithBaseURL(DefaultBaseURL)
}

// NewWithBaseURL creates the adapter against a custom endpoint, mainly
// for tests and proxies.
func NewWithBaseURL(baseURL string) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		ID:        "openai",
		BaseURL:   baseURL,
		EnvKey:    "OPENAI_API_KEY",
		Translate: translateOptions,
	})
}

// reasoningModel reports whether the model is in the o-family, which
// takes max_completion_tokens and rejects temperature.
func reasoningModel(model types.Model) bool {
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if strings.HasPrefix(model.Model, prefix) {
			return true
		}
	}
	return false
}

func translateOptions(op provider.Operation, model types.Model) []translate.Step {
	if op != provider.OperationChat || !reasoningModel(model) {
		return nil
	}
	return []translate.Step{
		translate.Rename("max_tokens", "max_completion_tokens"),
		translate.Drop("temperature", translate.UnsupportedWarning(model.Model, "temperature")),
	}
}

func init() {
	_ = registry.Register(New())
}
