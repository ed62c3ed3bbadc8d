// Package google implements the Google Gemini adapter over the
// generativelanguage generateContent API.
package google

import (
	"encoding/json"
	"fmt"

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

// DefaultBaseURL is the generativelanguage API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Adapter implements provider.Adapter for Gemini.
type Adapter struct {
	baseURL string
}

// New creates the Gemini adapter.
func New() *Adapter {
	return &Adapter{baseURL: DefaultBaseURL}
}

// NewWithBaseURL creates the adapter against a custom endpoint.
func NewWithBaseURL(baseURL string) *Adapter {
	return &Adapter{baseURL: baseURL}
}

// ProviderID implements provider.Adapter.
func (a *Adapter) ProviderID() string { return "google" }

// DefaultEnvKey implements provider.EnvKeyProvider.
func (a *Adapter) DefaultEnvKey() string { return "GEMINI_API_KEY" }

// Credential implements provider.Adapter; Gemini takes the key as a URL
// query parameter.
func (a *Adapter) Credential() provider.CredentialPlacement {
	return provider.CredentialPlacement{QueryParam: "key"}
}

// TranslateOptions implements provider.Adapter: sampling options move to
// their generationConfig camelCase names.
func (a *Adapter) TranslateOptions(op provider.Operation, model types.Model, opts *provider.CallOptions) (map[string]any, []string, error) {
	params := opts.ToParams()
	warnings, err := translate.Apply(params,
		translate.Rename("max_tokens", "maxOutputTokens"),
		translate.Rename("top_p", "topP"),
		translate.Rename("top_k", "topK"),
		translate.Rename("stop", "stopSequences"),
		translate.Drop("frequency_penalty", translate.UnsupportedWarning("gemini", "frequency_penalty")),
		translate.Drop("presence_penalty", translate.UnsupportedWarning("gemini", "presence_penalty")),
		translate.Drop("seed", translate.UnsupportedWarning("gemini", "seed")),
	)
	if err != nil {
		return nil, warnings, err
	}
	return params, warnings, nil
}

// EncodeRequest implements provider.Adapter. The model name is embedded
// in the URL path; streaming uses streamGenerateContent with alt=sse.
func (a *Adapter) EncodeRequest(op provider.Operation, model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	switch op {
	case provider.OperationChat:
		return a.encodeChat(model, ctx, opts, params)
	case provider.OperationEmbedding:
		return a.encodeEmbedding(model, ctx)
	default:
		return nil, llmerrors.Newf(llmerrors.KindInvalidParameter, "operation %q not supported by google", op)
	}
}

func (a *Adapter) encodeChat(model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	converted := prompt.ToGeminiPrompt(ctx)

	body := map[string]any{"contents": converted.Contents}
	if converted.SystemInstruction != nil {
		body["systemInstruction"] = converted.SystemInstruction
	}
	if len(params) > 0 {
		body["generationConfig"] = params
	}
	if opts.ResponseFormat != nil && opts.ResponseFormat.Type != "text" {
		config, _ := body["generationConfig"].(map[string]any)
		if config == nil {
			config = map[string]any{}
			body["generationConfig"] = config
		}
		config["responseMimeType"] = "application/json"
		if opts.ResponseFormat.Schema != nil {
			config["responseSchema"] = opts.ResponseFormat.Schema
		}
	}
	if len(opts.Tools) > 0 {
		body["tools"] = tool.ToGeminiFormat(opts.Tools)
		if opts.ToolChoice != nil {
			body["toolConfig"] = tool.ChoiceToGemini(*opts.ToolChoice)
		}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidParameter, "encoding request body", err)
	}

	operation := "generateContent"
	if opts.Stream {
		operation = "streamGenerateContent?alt=sse"
	}
	req := &provider.HTTPRequest{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/models/%s:%s", a.baseURL, model.Model, operation),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    encoded,
	}
	if opts.Stream {
		req.Stream = true
		// SSE when alt=sse is honored; the framer falls back to
		// JSON-array parsing when the body opens with "[".
		req.Framing = streaming.FormatSSE
	}
	return req, nil
}

func (a *Adapter) encodeEmbedding(model types.Model, ctx types.Context) (*provider.HTTPRequest, error) {
	var requests []map[string]any
	for _, msg := range ctx {
		requests = append(requests, map[string]any{
			"model":   "models/" + model.Model,
			"content": map[string]any{"parts": []map[string]any{{"text": msg.Text()}}},
		})
	}
	encoded, err := json.Marshal(map[string]any{"requests": requests})
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidParameter, "encoding request body", err)
	}
	return &provider.HTTPRequest{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/models/%s:batchEmbedContents", a.baseURL, model.Model),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    encoded,
	}, nil
}

// wireResponse is the generateContent response shape; streamed events use
// the same grammar per event.
type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount        int64 `json:"promptTokenCount"`
		CandidatesTokenCount    int64 `json:"candidatesTokenCount"`
		TotalTokenCount         int64 `json:"totalTokenCount"`
		ThoughtsTokenCount      int64 `json:"thoughtsTokenCount"`
		CachedContentTokenCount int64 `json:"cachedContentTokenCount"`
	} `json:"usageMetadata"`
	ResponseID   string `json:"responseId"`
	ModelVersion string `json:"modelVersion"`
}

type wirePart struct {
	Text         string `json:"text"`
	Thought      bool   `json:"thought"`
	FunctionCall *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"functionCall"`
}

func (w *wireResponse) usage() types.Usage {
	if w.UsageMetadata == nil {
		return types.Usage{}
	}
	return types.Usage{
		InputTokens:     w.UsageMetadata.PromptTokenCount,
		OutputTokens:    w.UsageMetadata.CandidatesTokenCount,
		TotalTokens:     w.UsageMetadata.TotalTokenCount,
		ReasoningTokens: w.UsageMetadata.ThoughtsTokenCount,
		CachedTokens:    w.UsageMetadata.CachedContentTokenCount,
	}.Normalize()
}

var consumedResponseKeys = map[string]bool{
	"candidates": true, "usageMetadata": true, "responseId": true,
	"modelVersion": true,
}

// DecodeResponse implements provider.Adapter. Tool use has no dedicated
// finish reason on this API; a function-call part forces tool_calls.
func (a *Adapter) DecodeResponse(body []byte, model types.Model) (*types.Response, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "response body is not a JSON object", err)
	}
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "decoding generateContent response", err)
	}

	resp := &types.Response{
		ID:    wire.ResponseID,
		Model: wire.ModelVersion,
		Usage: wire.usage(),
	}
	if resp.Model == "" {
		resp.Model = model.Model
	}

	var parts []types.ContentPart
	if len(wire.Candidates) > 0 {
		candidate := wire.Candidates[0]
		resp.FinishReason = providerutils.MapGeminiFinishReason(candidate.FinishReason)
		for i, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				id := fmt.Sprintf("call_%d", i)
				parts = append(parts, types.ToolCallContent{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: args,
					Metadata:  map[string]any{"id": id},
				})
				resp.FinishReason = types.FinishReasonToolCalls
			case part.Thought:
				parts = append(parts, types.ReasoningContent{Text: part.Text})
			case part.Text != "":
				parts = append(parts, types.TextContent{Text: part.Text})
			}
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

// DecodeEmbeddings implements provider.EmbeddingAdapter over the
// batchEmbedContents response.
func (a *Adapter) DecodeEmbeddings(body []byte, model types.Model) (*types.EmbeddingsResult, error) {
	var wire struct {
		Embeddings []struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "decoding embeddings", err)
	}
	result := &types.EmbeddingsResult{}
	for _, item := range wire.Embeddings {
		result.Embeddings = append(result.Embeddings, item.Values)
	}
	return result, nil
}

// DecodeStreamEvent implements provider.Adapter: each event is a
// generateContent fragment; parts map to content, reasoning or tool_call
// chunks and the usage metadata on the final event becomes a meta chunk.
func (a *Adapter) DecodeStreamEvent(event streaming.Event, model types.Model) ([]types.StreamChunk, error) {
	if event.Parsed == nil {
		return nil, nil
	}
	var wire wireResponse
	if err := json.Unmarshal([]byte(event.Data), &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindStream, "decoding stream event", err)
	}

	var chunks []types.StreamChunk
	var finish types.FinishReason
	if len(wire.Candidates) > 0 {
		candidate := wire.Candidates[0]
		finish = providerutils.MapGeminiFinishReason(candidate.FinishReason)
		for i, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					continue
				}
				id := fmt.Sprintf("call_%d", i)
				chunks = append(chunks, types.StreamChunk{
					Type:      types.ChunkTypeToolCall,
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
					Metadata:  map[string]any{"id": id},
				})
				finish = types.FinishReasonToolCalls
			case part.Thought:
				chunks = append(chunks, types.StreamChunk{Type: types.ChunkTypeReasoning, Text: part.Text})
			case part.Text != "":
				chunks = append(chunks, types.StreamChunk{Type: types.ChunkTypeContent, Text: part.Text})
			}
		}
	}
	// Usage metadata is cumulative on every fragment; only the final
	// event (the one carrying a finish reason) folds into the terminal
	// accumulator.
	if finish != "" {
		chunk := types.StreamChunk{Type: types.ChunkTypeMeta, FinishReason: finish}
		if wire.UsageMetadata != nil {
			usage := wire.usage()
			chunk.Usage = &usage
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func init() {
	_ = registry.Register(New())
}
