package provider

import (
	"time"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

// ResponseFormat requests structured output from providers that support a
// native JSON-schema response mode.
type ResponseFormat struct {
	// Type is "text", "json_object" or "json_schema".
	Type string

	// Name and Schema describe the expected object for json_schema mode.
	Name   string
	Schema map[string]any
}

// CallOptions is the shared core option schema. Provider-specific options
// travel in ProviderOptions and are validated by each adapter's translator.
type CallOptions struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"maxTokens,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	Seed             *int     `json:"seed,omitempty"`

	Stream bool `json:"stream,omitempty"`

	Tools      []types.Tool      `json:"tools,omitempty"`
	ToolChoice *types.ToolChoice `json:"toolChoice,omitempty"`

	ResponseFormat *ResponseFormat `json:"responseFormat,omitempty"`

	// APIKey overrides credential resolution for this call.
	APIKey string `json:"-"`

	// Timeout bounds the whole HTTP exchange; ReceiveTimeout bounds the
	// gap between streamed frames.
	Timeout        time.Duration `json:"-"`
	ReceiveTimeout time.Duration `json:"-"`

	// ProviderOptions carries provider-specific options by name
	// ("reasoning_effort", "service_tier", "live_search", ...). Adapters
	// translate or reject them.
	ProviderOptions map[string]any `json:"providerOptions,omitempty"`
}

// ToParams flattens the sampling options into the snake_case wire
// parameter map translators operate on, merged with ProviderOptions.
// Structural options (tools, response format, stream) stay on the struct;
// adapters encode those directly.
func (o *CallOptions) ToParams() map[string]any {
	params := make(map[string]any)
	if o == nil {
		return params
	}
	if o.Temperature != nil {
		params["temperature"] = *o.Temperature
	}
	if o.MaxTokens != nil {
		params["max_tokens"] = *o.MaxTokens
	}
	if o.TopP != nil {
		params["top_p"] = *o.TopP
	}
	if o.TopK != nil {
		params["top_k"] = *o.TopK
	}
	if o.FrequencyPenalty != nil {
		params["frequency_penalty"] = *o.FrequencyPenalty
	}
	if o.PresencePenalty != nil {
		params["presence_penalty"] = *o.PresencePenalty
	}
	if len(o.Stop) > 0 {
		params["stop"] = o.Stop
	}
	if o.Seed != nil {
		params["seed"] = *o.Seed
	}
	for k, v := range o.ProviderOptions {
		params[k] = v
	}
	return params
}

// Clone returns a deep-enough copy for translators to mutate safely.
func (o *CallOptions) Clone() *CallOptions {
	if o == nil {
		return &CallOptions{}
	}
	out := *o
	if o.Stop != nil {
		out.Stop = append([]string(nil), o.Stop...)
	}
	if o.Tools != nil {
		out.Tools = append([]types.Tool(nil), o.Tools...)
	}
	if o.ProviderOptions != nil {
		out.ProviderOptions = make(map[string]any, len(o.ProviderOptions))
		for k, v := range o.ProviderOptions {
			out.ProviderOptions[k] = v
		}
	}
	return &out
}

// Validate checks option invariants common to every provider.
func (o *CallOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return llmerrors.Newf(llmerrors.KindInvalidParameter, "temperature %v out of range [0, 2]", *o.Temperature)
	}
	if o.MaxTokens != nil && *o.MaxTokens <= 0 {
		return llmerrors.Newf(llmerrors.KindInvalidParameter, "maxTokens must be positive, got %d", *o.MaxTokens)
	}
	if o.TopP != nil && (*o.TopP < 0 || *o.TopP > 1) {
		return llmerrors.Newf(llmerrors.KindInvalidParameter, "topP %v out of range [0, 1]", *o.TopP)
	}
	for _, tool := range o.Tools {
		if err := tool.Validate(); err != nil {
			return llmerrors.Wrap(llmerrors.KindInvalidParameter, "invalid tool", err)
		}
	}
	if o.ToolChoice != nil && o.ToolChoice.Type == types.ToolChoiceTool && o.ToolChoice.ToolName == "" {
		return llmerrors.New(llmerrors.KindInvalidParameter, "toolChoice of type tool requires a tool name")
	}
	return nil
}
