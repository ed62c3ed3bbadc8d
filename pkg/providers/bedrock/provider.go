// Package bedrock implements the AWS Bedrock runtime adapter. Requests
// are SigV4-signed; the model id rides in the URL path. Anthropic models
// keep their native Messages wire shape over the invoke path, everything
// else goes through the Converse API. Streaming bodies use the AWS binary
// event stream framing.
package bedrock

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providers/anthropic"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/prompt"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/streaming"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/tool"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/translate"
	"github.com/digitallysavvy/go-llm/pkg/registry"
)

// anthropicBedrockVersion is the version pin native Anthropic bodies
// carry in place of the anthropic-version header.
const anthropicBedrockVersion = "bedrock-2023-05-31"

// defaultRegion is used when AWS_REGION is unset.
const defaultRegion = "us-east-1"

// Adapter implements provider.Adapter for Bedrock.
type Adapter struct {
	region  string
	baseURL string

	// anthropic decodes native Messages bodies on the Anthropic
	// sub-path.
	anthropic *anthropic.Adapter

	// credsOverride pins credentials for tests; nil reads the
	// environment at signing time.
	credsOverride *Credentials
}

// New creates the Bedrock adapter for the region in AWS_REGION.
func New() *Adapter {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}
	return NewWithRegion(region)
}

// NewWithRegion creates the adapter for an explicit region.
func NewWithRegion(region string) *Adapter {
	return &Adapter{
		region:    region,
		baseURL:   fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region),
		anthropic: anthropic.New(),
	}
}

// NewWithBaseURL creates the adapter against a custom endpoint with fixed
// credentials, mainly for tests.
func NewWithBaseURL(baseURL string, creds Credentials) *Adapter {
	return &Adapter{
		region:        creds.Region,
		baseURL:       baseURL,
		anthropic:     anthropic.New(),
		credsOverride: &creds,
	}
}

// ProviderID implements provider.Adapter.
func (a *Adapter) ProviderID() string { return "bedrock" }

// Credential implements provider.Adapter. Bedrock has no API-key header;
// authentication is the SigV4 signature applied by SignRequest.
func (a *Adapter) Credential() provider.CredentialPlacement {
	return provider.CredentialPlacement{}
}

// SignRequest implements provider.RequestSigner.
func (a *Adapter) SignRequest(req *provider.HTTPRequest) error {
	creds := a.credentials()
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return llmerrors.New(llmerrors.KindInvalidParameter,
			"no AWS credentials found for provider \"bedrock\"")
	}
	return newSigner(creds).sign(req.Method, req.URL, req.Headers, req.Body)
}

func (a *Adapter) credentials() Credentials {
	if a.credsOverride != nil {
		return *a.credsOverride
	}
	return Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Region:          a.region,
	}
}

// anthropicModel reports whether the Bedrock model id selects the native
// Anthropic sub-path.
func anthropicModel(model types.Model) bool {
	return strings.Contains(model.Model, "anthropic.")
}

// TranslateOptions implements provider.Adapter, branching per sub-path.
func (a *Adapter) TranslateOptions(op provider.Operation, model types.Model, opts *provider.CallOptions) (map[string]any, []string, error) {
	if anthropicModel(model) {
		return a.anthropic.TranslateOptions(op, model, opts)
	}

	params := opts.ToParams()
	warnings, err := translate.Apply(params,
		translate.Rename("max_tokens", "maxTokens"),
		translate.Rename("top_p", "topP"),
		translate.Rename("stop", "stopSequences"),
		translate.Drop("top_k", translate.UnsupportedWarning("bedrock converse", "top_k")),
		translate.Drop("frequency_penalty", translate.UnsupportedWarning("bedrock converse", "frequency_penalty")),
		translate.Drop("presence_penalty", translate.UnsupportedWarning("bedrock converse", "presence_penalty")),
		translate.Drop("seed", translate.UnsupportedWarning("bedrock converse", "seed")),
	)
	if err != nil {
		return nil, warnings, err
	}
	return params, warnings, nil
}

// EncodeRequest implements provider.Adapter. Non-streaming requests use
// /model/{id}/invoke or /converse; streaming swaps in
// /invoke-with-response-stream or /converse-stream with binary framing.
func (a *Adapter) EncodeRequest(op provider.Operation, model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	if op != provider.OperationChat {
		return nil, llmerrors.Newf(llmerrors.KindInvalidParameter, "operation %q not supported by bedrock", op)
	}
	if anthropicModel(model) {
		return a.encodeAnthropic(model, ctx, opts, params)
	}
	return a.encodeConverse(model, ctx, opts, params)
}

func (a *Adapter) encodeAnthropic(model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	converted, err := prompt.ToAnthropicPrompt(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"anthropic_version": anthropicBedrockVersion,
		"messages":          converted.Messages,
	}
	if converted.System != "" {
		body["system"] = converted.System
	}
	for k, v := range params {
		body[k] = v
	}
	if _, ok := body["max_tokens"]; !ok {
		body["max_tokens"] = 4096
	}
	// ToolChoiceNone has no Anthropic wire form; the tools are left out.
	noTools := opts.ToolChoice != nil && opts.ToolChoice.Type == types.ToolChoiceNone
	if len(opts.Tools) > 0 && !noTools {
		body["tools"] = tool.ToAnthropicFormat(opts.Tools)
		if opts.ToolChoice != nil {
			body["tool_choice"] = tool.ChoiceToAnthropic(*opts.ToolChoice)
		}
	}

	return a.buildRequest(model, body, opts.Stream, "invoke", "invoke-with-response-stream")
}

func (a *Adapter) encodeConverse(model types.Model, ctx types.Context, opts *provider.CallOptions, params map[string]any) (*provider.HTTPRequest, error) {
	converted := prompt.ToConversePrompt(ctx)

	body := map[string]any{"messages": converted.Messages}
	if len(converted.System) > 0 {
		body["system"] = converted.System
	}
	if len(params) > 0 {
		body["inferenceConfig"] = params
	}
	if len(opts.Tools) > 0 {
		body["toolConfig"] = tool.ToConverseFormat(opts.Tools)
	}

	return a.buildRequest(model, body, opts.Stream, "converse", "converse-stream")
}

func (a *Adapter) buildRequest(model types.Model, body map[string]any, stream bool, path, streamPath string) (*provider.HTTPRequest, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindInvalidParameter, "encoding request body", err)
	}

	operation := path
	if stream {
		operation = streamPath
	}
	req := &provider.HTTPRequest{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/model/%s/%s", a.baseURL, model.Model, operation),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    encoded,
	}
	if stream {
		req.Stream = true
		req.Framing = streaming.FormatEventStream
		req.Headers["Accept"] = "application/vnd.amazon.eventstream"
	}
	return req, nil
}

// converseResponse is the Converse API non-streaming shape.
type converseResponse struct {
	Output struct {
		Message struct {
			Content []struct {
				Text    string `json:"text"`
				ToolUse *struct {
					ToolUseID string         `json:"toolUseId"`
					Name      string         `json:"name"`
					Input     map[string]any `json:"input"`
				} `json:"toolUse"`
			} `json:"content"`
		} `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int64 `json:"inputTokens"`
		OutputTokens int64 `json:"outputTokens"`
		TotalTokens  int64 `json:"totalTokens"`
	} `json:"usage"`
}

// DecodeResponse implements provider.Adapter, branching per sub-path.
func (a *Adapter) DecodeResponse(body []byte, model types.Model) (*types.Response, error) {
	if anthropicModel(model) {
		return a.anthropic.DecodeResponse(body, model)
	}

	var wire converseResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIResponse, "decoding converse response", err)
	}

	resp := &types.Response{
		Model:        model.Model,
		FinishReason: mapConverseStopReason(wire.StopReason),
		Usage: types.Usage{
			InputTokens:  wire.Usage.InputTokens,
			OutputTokens: wire.Usage.OutputTokens,
			TotalTokens:  wire.Usage.TotalTokens,
		}.Normalize(),
	}

	var parts []types.ContentPart
	for _, block := range wire.Output.Message.Content {
		switch {
		case block.ToolUse != nil:
			args := block.ToolUse.Input
			if args == nil {
				args = map[string]any{}
			}
			parts = append(parts, types.ToolCallContent{
				ID:        block.ToolUse.ToolUseID,
				Name:      block.ToolUse.Name,
				Arguments: args,
				Metadata:  map[string]any{"id": block.ToolUse.ToolUseID},
			})
		case block.Text != "":
			parts = append(parts, types.TextContent{Text: block.Text})
		}
	}
	resp.Message = types.Message{Role: types.RoleAssistant, Content: parts}
	return resp, nil
}

func mapConverseStopReason(reason string) types.FinishReason {
	switch reason {
	case "":
		return ""
	case "end_turn", "stop_sequence":
		return types.FinishReasonStop
	case "max_tokens":
		return types.FinishReasonLength
	case "tool_use":
		return types.FinishReasonToolCalls
	case "content_filtered":
		return types.FinishReasonContentFilter
	default:
		return types.FinishReason(reason)
	}
}

// converseStreamEvent is one unwrapped converse-stream payload.
type converseStreamEvent struct {
	ContentBlockDelta *struct {
		Delta struct {
			Text    string `json:"text"`
			ToolUse *struct {
				Input string `json:"input"`
			} `json:"toolUse"`
		} `json:"delta"`
	} `json:"contentBlockDelta"`

	ContentBlockStart *struct {
		Start struct {
			ToolUse *struct {
				ToolUseID string `json:"toolUseId"`
				Name      string `json:"name"`
			} `json:"toolUse"`
		} `json:"start"`
	} `json:"contentBlockStart"`

	MessageStop *struct {
		StopReason string `json:"stopReason"`
	} `json:"messageStop"`

	Metadata *struct {
		Usage struct {
			InputTokens  int64 `json:"inputTokens"`
			OutputTokens int64 `json:"outputTokens"`
			TotalTokens  int64 `json:"totalTokens"`
		} `json:"usage"`
	} `json:"metadata"`
}

// DecodeStreamEvent implements provider.Adapter. Anthropic sub-path
// payloads are native Messages stream events; Converse payloads dispatch
// on their wrapper key.
func (a *Adapter) DecodeStreamEvent(event streaming.Event, model types.Model) ([]types.StreamChunk, error) {
	if anthropicModel(model) {
		return a.anthropic.DecodeStreamEvent(event, model)
	}
	if event.Parsed == nil {
		return nil, nil
	}

	var wire converseStreamEvent
	if err := json.Unmarshal([]byte(event.Data), &wire); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindStream, "decoding converse stream event", err)
	}

	switch {
	case wire.ContentBlockStart != nil && wire.ContentBlockStart.Start.ToolUse != nil:
		start := wire.ContentBlockStart.Start.ToolUse
		return []types.StreamChunk{{
			Type:     types.ChunkTypeToolCall,
			Name:     start.Name,
			Metadata: map[string]any{"id": start.ToolUseID},
		}}, nil

	case wire.ContentBlockDelta != nil:
		delta := wire.ContentBlockDelta.Delta
		if delta.ToolUse != nil {
			return []types.StreamChunk{{
				Type:      types.ChunkTypeToolCall,
				Arguments: delta.ToolUse.Input,
			}}, nil
		}
		if delta.Text != "" {
			return []types.StreamChunk{{Type: types.ChunkTypeContent, Text: delta.Text}}, nil
		}
		return nil, nil

	case wire.MessageStop != nil:
		return []types.StreamChunk{{
			Type:         types.ChunkTypeMeta,
			FinishReason: mapConverseStopReason(wire.MessageStop.StopReason),
		}}, nil

	case wire.Metadata != nil:
		usage := types.Usage{
			InputTokens:  wire.Metadata.Usage.InputTokens,
			OutputTokens: wire.Metadata.Usage.OutputTokens,
			TotalTokens:  wire.Metadata.Usage.TotalTokens,
		}
		return []types.StreamChunk{{Type: types.ChunkTypeMeta, Usage: &usage}}, nil

	default:
		return nil, nil
	}
}

func init() {
	_ = registry.Register(New())
}
