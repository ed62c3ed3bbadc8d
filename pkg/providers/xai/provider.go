// Package xai implements the xAI Grok adapter over the OpenAI-compatible
// codec.
package xai

import (
	"strings"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providers/openaicompat"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/translate"
	"github.com/digitallysavvy/go-llm/pkg/registry"
)

// DefaultBaseURL is the xAI API root.
const DefaultBaseURL = "https://api.x.ai/v1"

// New creates the xAI adapter.
func New() *openaicompat.Adapter {
	return NewWithBaseURL(DefaultBaseURL)
}

// NewWithBaseURL creates the adapter against a custom endpoint.
func NewWithBaseURL(baseURL string) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		ID:        "xai",
		BaseURL:   baseURL,
		EnvKey:    "XAI_API_KEY",
		Translate: translateOptions,
		// Grok 4 and later accept response_format json_schema.
		NativeJSONSchema: grok4OrLater,
	})
}

func grok4OrLater(model types.Model) bool {
	return strings.HasPrefix(model.Model, "grok-4") || strings.HasPrefix(model.Model, "grok-5")
}

func translateOptions(op provider.Operation, model types.Model) []translate.Step {
	var steps []translate.Step

	// live_search travels as search_parameters on the wire.
	steps = append(steps, translate.Rename("live_search", "search_parameters"))

	if op == provider.OperationChat && strings.HasPrefix(model.Model, "grok-4") {
		for _, key := range []string{"frequency_penalty", "presence_penalty", "stop"} {
			steps = append(steps, translate.Drop(key, translate.UnsupportedWarning(model.Model, key)))
		}
	}
	return steps
}

func init() {
	_ = registry.Register(New())
}
