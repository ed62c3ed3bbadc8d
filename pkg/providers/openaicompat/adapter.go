// Package openaicompat implements the wire codec shared by every
// OpenAI-style Chat Completions backend: OpenAI itself, Groq, xAI and
// OpenRouter embed it and layer their own option translations on top.
package openaicompat

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
)

// TranslateHook lets an embedding provider add model-specific translation
// steps. It runs after the core parameter map is built.
type TranslateHook func(op provider.Operation, model types.Model) []translate.Step

// Config declares an OpenAI-compatible provider.
type Config struct {
	// ID is the registry provider id.
	ID string

	// BaseURL is the API root ("https://api.openai.com/v1").
	BaseURL string

	// EnvKey pins the API-key environment variable.
	EnvKey string

	// ChatPath and EmbeddingPath default to the standard endpoints.
	ChatPath      string
	EmbeddingPath string

	// Headers are provider-constant extra headers.
	Headers map[string]string

	// Translate adds provider-specific option translation steps.
	Translate TranslateHook

	// NativeJSONSchema marks models that accept response_format
	// json_schema. Nil means all models do.
	NativeJSONSchema func(model types.Model) bool
}

// Adapter is the shared OpenAI-style adapter.
type Adapter struct {
	cfg Config
}

// New builds an adapter from the config, applying endpoint defaults.
func New(cfg Config) *Adapter {
	if cfg.ChatPath == "" {
		cfg.ChatPath = "/chat/completions"
	}
	if cfg.EmbeddingPath == "" {
		cfg.EmbeddingPath = "/embeddings"
	}
	return &Adapter{cfg: cfg}
}

// ProviderID implements provider.Adapter.
func (a *Adapter) ProviderID() string { return a.cfg.ID }

// DefaultEnvKey implements provider.EnvKeyProvider.
func (a *Adapter) DefaultEnvKey() string { return a.cfg.EnvKey }

// Credential implements provider.Adapter. OpenAI-style APIs take a Bearer
// Authorization header.
func (a *Adapter) Credential() provider.CredentialPlacement {
	return provider.CredentialPlacement{Header: "Authorization", Prefix: "Bearer "}
}

// SupportsNativeJSONSchema reports whether the model accepts the
// response_format json_schema mode.
func (a *Adapter) SupportsNativeJSONSchema(model types.Model) bool {
	if a.cfg.NativeJSONSchema == nil {
		return true
	}
	return a.cfg.NativeJSONSchema(model)
}

// TranslateOptions implements provider.Adapter.
func (a *Adapter) TranslateOptions(op provider.Operation, model types.Model, opts *provider.CallOptions) (map[string]any, []string, error) {
	params := opts.ToParams()

	var steps []translate.Step
	if a.cfg.Translate != nil {
		steps = a.cfg.Translate(op, model)
	}
	warnings, err := translate.Apply(params, steps...)
	if err != nil {
		return nil, warnings, err
	}
	return params, warnings, nil
}

// EncodeRequest implements provider.Adapter.
func (a *Adapter) EncodeRequest(op provider.Operation, model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	switch op {
	case provider.OperationChat:
		return a.encodeChat(model, ctx, opts, params)
	case provider.OperationEmbedding:
		return a.encodeEmbedding(model, ctx, params)
	default:
		return nil, llmerrors.Newf(llmerrors.KindInvalidParameter, "operation %q not supported by %s", op, a.cfg.ID)
	}
}

func (a *Adapter) encodeChat(model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	body := map[string]any{
		"model":    model.Model,
		"messages": prompt.ToOpenAIMessages(ctx),
	}
	for k, v := range params {
		body[k] = v
	}

	if len(opts.Tools) > 0 {
		body["tools"] = tool.ToOpenAIFormat(opts.Tools)
		if opts.ToolChoice != nil {
			body["tool_choice"] = tool.ChoiceToOpenAI(*opts.ToolChoice)
		}
	}
	if opts.ResponseFormat != nil {
		body["response_format"] = encodeResponseFormat(opts.ResponseFormat)
	}
	if opts.Stream {
		body["stream"] = true
		body["stream_options"] = map[string]any{"include_usage": true}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidParameter, "encoding request body", err)
	}

	req := &provider.HTTPRequest{
		Method:  "POST",
		URL:     a.cfg.BaseURL + a.cfg.ChatPath,
		Headers: a.headers(),
		Body:    encoded,
	}
	if opts.Stream {
		req.Stream = true
		req.Framing = streaming.FormatSSE
		req.Headers["Accept"] = "text/event-stream"
	}
	return req, nil
}

func (a *Adapter) encodeEmbedding(model types.Model, ctx types.Context, params map[string]any) (*provider.HTTPRequest, error) {
	var inputs []string
	for _, msg := range ctx {
		inputs = append(inputs, msg.Text())
	}
	body := map[string]any{
		"model": model.Model,
		"input": inputs,
	}
	for k, v := range params {
		body[k] = v
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidParameter, "encoding request body", err)
	}
	return &provider.HTTPRequest{
		Method:  "POST",
		URL:     a.cfg.BaseURL + a.cfg.EmbeddingPath,
		Headers: a.headers(),
		Body:    encoded,
	}, nil
}

func (a *Adapter) headers() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range a.cfg.Headers {
		headers[k] = v
	}
	return headers
}

// encodeResponseFormat maps the canonical response format to the OpenAI
// wire shape.
func encodeResponseFormat(rf *provider.ResponseFormat) map[string]any {
	switch rf.Type {
	case "json_schema":
		name := rf.Name
		if name == "" {
			name = "response"
		}
		return map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": rf.Schema,
				"strict": true,
			},
		}
	case "json_object":
		return map[string]any{"type": "json_object"}
	default:
		return map[string]any{"type": rf.Type}
	}
}

// chatResponse is the wire shape of a non-streaming completion.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			Reasoning string         `json:"reasoning"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage wireUsage `json:"usage"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`

	PromptTokensDetails struct {
		CachedTokens int64 `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails struct {
		ReasoningTokens int64 `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func (u wireUsage) canonical() types.Usage {
	return types.Usage{
		InputTokens:     u.PromptTokens,
		OutputTokens:    u.CompletionTokens,
		TotalTokens:     u.TotalTokens,
		ReasoningTokens: u.CompletionTokensDetails.ReasoningTokens,
		CachedTokens:    u.PromptTokensDetails.CachedTokens,
	}.Normalize()
}

// consumedResponseKeys are the top-level body keys mapped into the
// canonical shape; everything else lands in ProviderMeta.
var consumedResponseKeys = map[string]bool{
	"id": true, "model": true, "choices": true, "usage": true, "object": true,
}

// DecodeResponse implements provider.Adapter.
func (a *Adapter) DecodeResponse(body []byte, model types.Model) (*types.Response, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "response body is not a JSON object", err)
	}

	var wire chatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "decoding chat completion", err)
	}

	resp := &types.Response{
		ID:    wire.ID,
		Model: wire.Model,
		Usage: wire.Usage.canonical(),
	}
	if resp.Model == "" {
		resp.Model = model.Model
	}

	if len(wire.Choices) > 0 {
		choice := wire.Choices[0]
		resp.FinishReason = providerutils.MapOpenAIFinishReason(choice.FinishReason)

		var parts []types.ContentPart
		if choice.Message.Reasoning != "" {
			parts = append(parts, types.ReasoningContent{Text: choice.Message.Reasoning})
		}
		if choice.Message.Content != "" {
			parts = append(parts, types.TextContent{Text: choice.Message.Content})
		}
		for _, call := range choice.Message.ToolCalls {
			decoded, ok := decodeToolCall(call)
			if !ok {
				// Unparseable non-empty arguments drop the call.
				continue
			}
			parts = append(parts, decoded)
		}
		resp.Message = types.Message{Role: types.RoleAssistant, Content: parts}
	}

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

// decodeToolCall parses a wire tool call. Nil/empty arguments decode to an
// empty object; non-empty unparseable arguments fail.
func decodeToolCall(call wireToolCall) (types.ToolCallContent, bool) {
	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return types.ToolCallContent{}, false
		}
	}
	return types.ToolCallContent{
		ID:        call.ID,
		Name:      call.Function.Name,
		Arguments: args,
		Metadata:  map[string]any{"id": call.ID},
	}, true
}

// DecodeEmbeddings implements provider.EmbeddingAdapter.
func (a *Adapter) DecodeEmbeddings(body []byte, model types.Model) (*types.EmbeddingsResult, error) {
	var wire struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
		Usage struct {
			PromptTokens int64 `json:"prompt_tokens"`
			TotalTokens  int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "decoding embeddings", err)
	}
	result := &types.EmbeddingsResult{
		Usage: types.Usage{
			InputTokens: wire.Usage.PromptTokens,
			TotalTokens: wire.Usage.TotalTokens,
		},
	}
	for _, item := range wire.Data {
		result.Embeddings = append(result.Embeddings, item.Embedding)
	}
	return result, nil
}

// streamDelta is the wire shape of one streamed chunk.
type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// DecodeStreamEvent implements provider.Adapter. Content deltas map to
// content chunks, reasoning deltas to reasoning chunks, tool-call deltas
// to tool_call fragments keyed by id; the final usage payload becomes a
// meta chunk.
func (a *Adapter) DecodeStreamEvent(event streaming.Event, model types.Model) ([]types.StreamChunk, error) {
	if event.Parsed == nil {
		// Non-JSON events (comments, keep-alives) carry no chunks.
		return nil, nil
	}
	var wire streamDelta
	if err := json.Unmarshal([]byte(event.Data), &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindStream, "decoding stream delta", err)
	}

	var chunks []types.StreamChunk
	if len(wire.Choices) > 0 {
		choice := wire.Choices[0]
		if choice.Delta.Reasoning != "" {
			chunks = append(chunks, types.StreamChunk{
				Type: types.ChunkTypeReasoning,
				Text: choice.Delta.Reasoning,
			})
		}
		if choice.Delta.Content != "" {
			chunks = append(chunks, types.StreamChunk{
				Type: types.ChunkTypeContent,
				Text: choice.Delta.Content,
			})
		}
		for _, call := range choice.Delta.ToolCalls {
			chunk := types.StreamChunk{
				Type:      types.ChunkTypeToolCall,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			}
			if call.ID != "" {
				chunk.Metadata = map[string]any{"id": call.ID}
			}
			chunks = append(chunks, chunk)
		}
		if choice.FinishReason != "" && wire.Usage == nil {
			chunks = append(chunks, types.StreamChunk{
				Type:         types.ChunkTypeMeta,
				FinishReason: providerutils.MapOpenAIFinishReason(choice.FinishReason),
			})
		}
	}
	if wire.Usage != nil {
		usage := wire.Usage.canonical()
		chunk := types.StreamChunk{Type: types.ChunkTypeMeta, Usage: &usage}
		if len(wire.Choices) > 0 && wire.Choices[0].FinishReason != "" {
			chunk.FinishReason = providerutils.MapOpenAIFinishReason(wire.Choices[0].FinishReason)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
