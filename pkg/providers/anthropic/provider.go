// Package anthropic implements the Anthropic Messages API adapter.
package anthropic

import (
	"encoding/json"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providerutils"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/prompt"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/streaming"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/tool"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/translate"
	"github.com/digitallysavvy/go-llm/pkg/registry"
)

const (
	// DefaultBaseURL is the Anthropic API root.
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// apiVersion pins the Messages API revision.
	apiVersion = "2023-06-01"

	// defaultMaxTokens is used when the caller sets none; the Messages
	// API requires the field.
	defaultMaxTokens = 4096
)

// Adapter implements provider.Adapter for Anthropic.
type Adapter struct {
	baseURL string
}

// New creates the Anthropic adapter.
func New() *Adapter {
	return &Adapter{baseURL: DefaultBaseURL}
}

// NewWithBaseURL creates the adapter against a custom endpoint.
func NewWithBaseURL(baseURL string) *Adapter {
	return &Adapter{baseURL: baseURL}
}

// ProviderID implements provider.Adapter.
func (a *Adapter) ProviderID() string { return "anthropic" }

// DefaultEnvKey implements provider.EnvKeyProvider.
func (a *Adapter) DefaultEnvKey() string { return "ANTHROPIC_API_KEY" }

// Credential implements provider.Adapter; Anthropic takes a bare
// x-api-key header.
func (a *Adapter) Credential() provider.CredentialPlacement {
	return provider.CredentialPlacement{Header: "x-api-key"}
}

// TranslateOptions implements provider.Adapter. Stop sequences rename to
// stop_sequences; penalties have no Anthropic equivalent and drop with a
// warning; reasoning_effort maps onto a thinking budget.
func (a *Adapter) TranslateOptions(op provider.Operation, model types.Model, opts *provider.CallOptions) (map[string]any, []string, error) {
	params := opts.ToParams()
	warnings, err := translate.Apply(params,
		translate.Mutex("thinking", "reasoning_effort"),
		translate.Rename("stop", "stop_sequences"),
		translate.Drop("frequency_penalty", translate.UnsupportedWarning("anthropic", "frequency_penalty")),
		translate.Drop("presence_penalty", translate.UnsupportedWarning("anthropic", "presence_penalty")),
		translate.Drop("seed", translate.UnsupportedWarning("anthropic", "seed")),
	)
	if err != nil {
		return nil, warnings, err
	}

	if effort, ok := params["reasoning_effort"].(string); ok {
		delete(params, "reasoning_effort")
		params["thinking"] = map[string]any{
			"type":          "enabled",
			"budget_tokens": thinkingBudget(effort),
		}
	}
	return params, warnings, nil
}

// thinkingBudget maps a coarse reasoning effort to a token budget.
func thinkingBudget(effort string) int {
	switch effort {
	case "low":
		return 1024
	case "high":
		return 16384
	default:
		return 4096
	}
}

// EncodeRequest implements provider.Adapter.
func (a *Adapter) EncodeRequest(op provider.Operation, model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	if op != provider.OperationChat {
		return nil, llmerrors.Newf(llmerrors.KindInvalidParameter, "operation %q not supported by anthropic", op)
	}

	converted, err := prompt.ToAnthropicPrompt(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"model":    model.Model,
		"messages": converted.Messages,
	}
	if converted.System != "" {
		body["system"] = converted.System
	}
	for k, v := range params {
		body[k] = v
	}
	if _, ok := body["max_tokens"]; !ok {
		body["max_tokens"] = defaultMaxTokens
	}

	// ToolChoiceNone has no Anthropic wire form; the tools are left out.
	noTools := opts.ToolChoice != nil && opts.ToolChoice.Type == types.ToolChoiceNone
	if len(opts.Tools) > 0 && !noTools {
		body["tools"] = tool.ToAnthropicFormat(opts.Tools)
		if opts.ToolChoice != nil {
			body["tool_choice"] = tool.ChoiceToAnthropic(*opts.ToolChoice)
		}
	}
	if opts.Stream {
		body["stream"] = true
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidParameter, "encoding request body", err)
	}

	req := &provider.HTTPRequest{
		Method: "POST",
		URL:    a.baseURL + "/messages",
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"anthropic-version": apiVersion,
		},
		Body: encoded,
	}
	if opts.Stream {
		req.Stream = true
		req.Framing = streaming.FormatSSE
		req.Headers["Accept"] = "text/event-stream"
	}
	return req, nil
}

// wireResponse is the Messages API non-streaming shape.
type wireResponse struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      wireUsage   `json:"usage"`
}

type wireBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
}

type wireUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

func (u wireUsage) canonical() types.Usage {
	return types.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		CachedTokens: u.CacheReadInputTokens,
	}.Normalize()
}

var consumedResponseKeys = map[string]bool{
	"id": true, "model": true, "content": true, "stop_reason": true,
	"usage": true, "type": true, "role": true, "stop_sequence": true,
}

// DecodeResponse implements provider.Adapter.
func (a *Adapter) DecodeResponse(body []byte, model types.Model) (*types.Response, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "response body is not a JSON object", err)
	}
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "decoding messages response", err)
	}

	resp := &types.Response{
		ID:           wire.ID,
		Model:        wire.Model,
		Usage:        wire.Usage.canonical(),
		FinishReason: providerutils.MapAnthropicStopReason(wire.StopReason),
	}
	if resp.Model == "" {
		resp.Model = model.Model
	}

	var parts []types.ContentPart
	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			parts = append(parts, types.TextContent{Text: block.Text})
		case "thinking":
			parts = append(parts, types.ReasoningContent{Text: block.Thinking})
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					continue
				}
				if args == nil {
					args = map[string]any{}
				}
			}
			parts = append(parts, types.ToolCallContent{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
				Metadata:  map[string]any{"id": block.ID},
			})
		}
	}
	resp.Message = types.Message{Role: types.RoleAssistant, Content: parts}

	for key := range raw {
		if consumedResponseKeys[key] {
			continue
		}
		var val any
		if err := json.Unmarshal(raw[key], &val); err == nil {
			if resp.ProviderMeta == nil {
				resp.ProviderMeta = map[string]any{}
			}
			resp.ProviderMeta[key] = val
		}
	}
	return resp, nil
}

// wireStreamEvent is the Messages API streaming shape, dispatched on type.
type wireStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	ContentBlock *wireBlock `json:"content_block"`

	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Message *struct {
		Usage wireUsage `json:"usage"`
	} `json:"message"`

	Usage *wireUsage `json:"usage"`
}

// DecodeStreamEvent implements provider.Adapter. content_block_delta
// events map by delta type; message_delta carries the terminal usage as a
// meta chunk; message_stop carries nothing.
func (a *Adapter) DecodeStreamEvent(event streaming.Event, model types.Model) ([]types.StreamChunk, error) {
	if event.Parsed == nil {
		return nil, nil
	}
	var wire wireStreamEvent
	if err := json.Unmarshal([]byte(event.Data), &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindStream, "decoding stream event", err)
	}

	switch wire.Type {
	case "message_start":
		if wire.Message != nil {
			usage := wire.Message.Usage.canonical()
			// Input tokens only; output arrives with message_delta.
			usage.OutputTokens = 0
			usage.TotalTokens = 0
			return []types.StreamChunk{{Type: types.ChunkTypeMeta, Usage: &usage}}, nil
		}
		return nil, nil

	case "content_block_start":
		if wire.ContentBlock != nil && wire.ContentBlock.Type == "tool_use" {
			return []types.StreamChunk{{
				Type:     types.ChunkTypeToolCall,
				Name:     wire.ContentBlock.Name,
				Metadata: map[string]any{"id": wire.ContentBlock.ID},
			}}, nil
		}
		return nil, nil

	case "content_block_delta":
		switch wire.Delta.Type {
		case "text_delta":
			return []types.StreamChunk{{Type: types.ChunkTypeContent, Text: wire.Delta.Text}}, nil
		case "thinking_delta":
			return []types.StreamChunk{{Type: types.ChunkTypeReasoning, Text: wire.Delta.Thinking}}, nil
		case "input_json_delta":
			return []types.StreamChunk{{
				Type:      types.ChunkTypeToolCall,
				Arguments: wire.Delta.PartialJSON,
			}}, nil
		}
		return nil, nil

	case "message_delta":
		chunk := types.StreamChunk{Type: types.ChunkTypeMeta}
		if wire.Usage != nil {
			usage := types.Usage{OutputTokens: wire.Usage.OutputTokens}
			chunk.Usage = &usage
		}
		if wire.Delta.StopReason != "" {
			chunk.FinishReason = providerutils.MapAnthropicStopReason(wire.Delta.StopReason)
		}
		if chunk.Usage == nil && chunk.FinishReason == "" {
			return nil, nil
		}
		return []types.StreamChunk{chunk}, nil

	default:
		// message_stop, ping and unknown event types carry no chunks.
		return nil, nil
	}
}

func init() {
	_ = registry.Register(New())
}
