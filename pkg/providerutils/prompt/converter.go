// Package prompt converts the canonical Context into the message shapes
// each provider family speaks: OpenAI-style chat messages, Anthropic
// content blocks, Gemini contents/parts, and Bedrock Converse.
package prompt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

// ToOpenAIMessages converts a Context to the OpenAI chat messages array.
// A message with a single text part flattens to a plain string; tool calls
// become the tool_calls array with JSON-string arguments; tool results
// become tool-role messages referencing tool_call_id.
func ToOpenAIMessages(ctx types.Context) []map[string]any {
	result := make([]map[string]any, 0, len(ctx))

	for _, msg := range ctx {
		wire := map[string]any{"role": string(msg.Role)}

		if msg.Role == types.RoleTool {
			wire["tool_call_id"] = msg.ToolCallID
			wire["content"] = toolResultText(msg)
			result = append(result, wire)
			continue
		}

		var (
			parts     []map[string]any
			toolCalls []map[string]any
		)
		for _, part := range msg.Content {
			switch p := part.(type) {
			case types.TextContent:
				parts = append(parts, map[string]any{"type": "text", "text": p.Text})
			case types.ReasoningContent:
				// OpenAI-style APIs take no reasoning input blocks; the
				// text is folded into the message content.
				parts = append(parts, map[string]any{"type": "text", "text": p.Text})
			case types.ImageURLContent:
				parts = append(parts, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": p.URL},
				})
			case types.ImageContent:
				dataURL := fmt.Sprintf("data:%s;base64,%s", p.MimeType, base64.StdEncoding.EncodeToString(p.Data))
				parts = append(parts, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": dataURL},
				})
			case types.ToolCallContent:
				args, _ := json.Marshal(p.Arguments)
				toolCalls = append(toolCalls, map[string]any{
					"id":   p.ID,
					"type": "function",
					"function": map[string]any{
						"name":      p.Name,
						"arguments": string(args),
					},
				})
			}
		}

		switch {
		case len(parts) == 1 && parts[0]["type"] == "text":
			wire["content"] = parts[0]["text"]
		case len(parts) > 0:
			wire["content"] = parts
		}
		if len(toolCalls) > 0 {
			wire["tool_calls"] = toolCalls
			if _, ok := wire["content"]; !ok {
				wire["content"] = nil
			}
		}
		result = append(result, wire)
	}
	return result
}

// AnthropicPrompt is the system string plus block-array messages the
// Anthropic Messages API takes.
type AnthropicPrompt struct {
	System   string
	Messages []map[string]any
}

// ToAnthropicPrompt converts a Context to the Anthropic wire shape. The
// system message moves to the dedicated system field; content is always a
// block array; reasoning becomes a thinking block.
func ToAnthropicPrompt(ctx types.Context) (*AnthropicPrompt, error) {
	out := &AnthropicPrompt{}

	for _, msg := range ctx {
		if msg.Role == types.RoleSystem {
			if out.System != "" {
				return nil, llmerrors.New(llmerrors.KindInvalidMessage,
					"anthropic accepts at most one system message")
			}
			out.System = msg.Text()
			continue
		}

		// Tool results ride in user-role messages as tool_result blocks.
		role := string(msg.Role)
		if msg.Role == types.RoleTool {
			role = string(types.RoleUser)
		}

		var blocks []map[string]any
		for _, part := range msg.Content {
			switch p := part.(type) {
			case types.TextContent:
				blocks = append(blocks, map[string]any{"type": "text", "text": p.Text})
			case types.ReasoningContent:
				blocks = append(blocks, map[string]any{"type": "thinking", "thinking": p.Text})
			case types.ImageContent:
				blocks = append(blocks, map[string]any{
					"type": "image",
					"source": map[string]any{
						"type":       "base64",
						"media_type": p.MimeType,
						"data":       base64.StdEncoding.EncodeToString(p.Data),
					},
				})
			case types.ImageURLContent:
				blocks = append(blocks, map[string]any{
					"type":   "image",
					"source": map[string]any{"type": "url", "url": p.URL},
				})
			case types.ToolCallContent:
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    p.ID,
					"name":  p.Name,
					"input": p.Arguments,
				})
			case types.ToolResultContent:
				blocks = append(blocks, map[string]any{
					"type":        "tool_result",
					"tool_use_id": p.ToolCallID,
					"content":     resultString(p.Result),
					"is_error":    p.IsError,
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		out.Messages = append(out.Messages, map[string]any{
			"role":    role,
			"content": blocks,
		})
	}
	return out, nil
}

// GeminiPrompt is the systemInstruction plus contents array the Gemini
// generateContent API takes.
type GeminiPrompt struct {
	SystemInstruction map[string]any
	Contents          []map[string]any
}

// ToGeminiPrompt converts a Context to the Gemini wire shape: role
// user/model, parts arrays, functionCall and functionResponse parts.
func ToGeminiPrompt(ctx types.Context) *GeminiPrompt {
	out := &GeminiPrompt{}

	for _, msg := range ctx {
		if msg.Role == types.RoleSystem {
			out.SystemInstruction = map[string]any{
				"parts": []map[string]any{{"text": msg.Text()}},
			}
			continue
		}

		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}

		var parts []map[string]any
		for _, part := range msg.Content {
			switch p := part.(type) {
			case types.TextContent:
				parts = append(parts, map[string]any{"text": p.Text})
			case types.ReasoningContent:
				parts = append(parts, map[string]any{"text": p.Text})
			case types.ImageContent:
				parts = append(parts, map[string]any{
					"inline_data": map[string]any{
						"mime_type": p.MimeType,
						"data":      base64.StdEncoding.EncodeToString(p.Data),
					},
				})
			case types.ToolCallContent:
				parts = append(parts, map[string]any{
					"functionCall": map[string]any{
						"name": p.Name,
						"args": p.Arguments,
					},
				})
			case types.ToolResultContent:
				parts = append(parts, map[string]any{
					"functionResponse": map[string]any{
						"name":     p.Name,
						"response": map[string]any{"result": p.Result},
					},
				})
			}
		}
		if len(parts) == 0 {
			continue
		}
		out.Contents = append(out.Contents, map[string]any{
			"role":  role,
			"parts": parts,
		})
	}
	return out
}

// ConversePrompt is the system blocks plus messages array the Bedrock
// Converse API takes.
type ConversePrompt struct {
	System   []map[string]any
	Messages []map[string]any
}

// ToConversePrompt converts a Context to the Bedrock Converse wire shape.
// System messages become [{text}] blocks; tool results are carried inside
// user-role messages as toolResult blocks referencing toolUseId.
func ToConversePrompt(ctx types.Context) *ConversePrompt {
	out := &ConversePrompt{}

	for _, msg := range ctx {
		if msg.Role == types.RoleSystem {
			out.System = append(out.System, map[string]any{"text": msg.Text()})
			continue
		}

		role := string(msg.Role)
		if msg.Role == types.RoleTool {
			role = string(types.RoleUser)
		}

		var blocks []map[string]any
		for _, part := range msg.Content {
			switch p := part.(type) {
			case types.TextContent:
				blocks = append(blocks, map[string]any{"text": p.Text})
			case types.ReasoningContent:
				blocks = append(blocks, map[string]any{
					"reasoningContent": map[string]any{
						"reasoningText": map[string]any{"text": p.Text},
					},
				})
			case types.ToolCallContent:
				blocks = append(blocks, map[string]any{
					"toolUse": map[string]any{
						"toolUseId": p.ID,
						"name":      p.Name,
						"input":     p.Arguments,
					},
				})
			case types.ToolResultContent:
				blocks = append(blocks, map[string]any{
					"toolResult": map[string]any{
						"toolUseId": p.ToolCallID,
						"content":   []map[string]any{{"text": resultString(p.Result)}},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		out.Messages = append(out.Messages, map[string]any{
			"role":    role,
			"content": blocks,
		})
	}
	return out
}

// toolResultText renders the tool-result parts of a tool-role message as
// the plain string OpenAI-style APIs expect.
func toolResultText(msg types.Message) string {
	for _, part := range msg.Content {
		if tr, ok := part.(types.ToolResultContent); ok {
			return resultString(tr.Result)
		}
	}
	return msg.Text()
}

// resultString renders a tool result value for providers that take string
// content: strings pass through, everything else is JSON-encoded.
func resultString(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(encoded)
}
