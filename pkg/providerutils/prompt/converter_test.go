package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

func TestToOpenAIMessages_FlattensSingleTextPart(t *testing.T) {
	wire := ToOpenAIMessages(types.NewContext(types.UserMessage("hello")))
	require.Len(t, wire, 1)
	assert.Equal(t, "user", wire[0]["role"])
	assert.Equal(t, "hello", wire[0]["content"])
}

func TestToOpenAIMessages_MultiPartContent(t *testing.T) {
	msg := types.Message{
		Role: types.RoleUser,
		Content: []types.ContentPart{
			types.TextContent{Text: "look at this"},
			types.ImageURLContent{URL: "https://example.com/cat.png"},
		},
	}
	wire := ToOpenAIMessages(types.NewContext(msg))
	parts := wire[0]["content"].([]map[string]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0]["type"])
	assert.Equal(t, "image_url", parts[1]["type"])
}

func TestToOpenAIMessages_ToolCallsAndResults(t *testing.T) {
	ctx := types.NewContext(
		types.UserMessage("weather?"),
		types.AssistantMessage(types.ToolCallContent{
			ID:        "call_1",
			Name:      "get_weather",
			Arguments: map[string]any{"city": "Oslo"},
		}),
		types.ToolMessage("call_1", "12C"),
	)
	wire := ToOpenAIMessages(ctx)
	require.Len(t, wire, 3)

	calls := wire[1]["tool_calls"].([]map[string]any)
	require.Len(t, calls, 1)
	fn := calls[0]["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
	// Arguments ride as a JSON string.
	assert.JSONEq(t, `{"city":"Oslo"}`, fn["arguments"].(string))

	assert.Equal(t, "tool", wire[2]["role"])
	assert.Equal(t, "call_1", wire[2]["tool_call_id"])
	assert.Equal(t, "12C", wire[2]["content"])
}

func TestToAnthropicPrompt_SystemExtraction(t *testing.T) {
	converted, err := ToAnthropicPrompt(types.NewContext(
		types.SystemMessage("be terse"),
		types.UserMessage("hi"),
	))
	require.NoError(t, err)
	assert.Equal(t, "be terse", converted.System)
	require.Len(t, converted.Messages, 1)

	// Content is always a block array.
	blocks := converted.Messages[0]["content"].([]map[string]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, "text", blocks[0]["type"])
}

func TestToAnthropicPrompt_TwoSystemMessagesError(t *testing.T) {
	_, err := ToAnthropicPrompt(types.NewContext(
		types.SystemMessage("one"),
		types.SystemMessage("two"),
	))
	assert.Error(t, err)
}

func TestToAnthropicPrompt_ToolResultRidesInUserRole(t *testing.T) {
	converted, err := ToAnthropicPrompt(types.NewContext(
		types.ToolMessage("toolu_1", "done"),
	))
	require.NoError(t, err)
	require.Len(t, converted.Messages, 1)
	assert.Equal(t, "user", converted.Messages[0]["role"])

	blocks := converted.Messages[0]["content"].([]map[string]any)
	assert.Equal(t, "tool_result", blocks[0]["type"])
	assert.Equal(t, "toolu_1", blocks[0]["tool_use_id"])
}

func TestToAnthropicPrompt_ReasoningBecomesThinking(t *testing.T) {
	converted, err := ToAnthropicPrompt(types.NewContext(
		types.AssistantMessage(types.ReasoningContent{Text: "hmm"}, types.TextContent{Text: "hi"}),
	))
	require.NoError(t, err)
	blocks := converted.Messages[0]["content"].([]map[string]any)
	assert.Equal(t, "thinking", blocks[0]["type"])
	assert.Equal(t, "hmm", blocks[0]["thinking"])
}

func TestToGeminiPrompt(t *testing.T) {
	converted := ToGeminiPrompt(types.NewContext(
		types.SystemMessage("be terse"),
		types.UserMessage("hi"),
		types.AssistantMessage(types.TextContent{Text: "hello"}),
		types.ToolMessage("call_1", map[string]any{"ok": true}),
	))
	require.NotNil(t, converted.SystemInstruction)
	require.Len(t, converted.Contents, 3)
	assert.Equal(t, "user", converted.Contents[0]["role"])
	assert.Equal(t, "model", converted.Contents[1]["role"])
	assert.Equal(t, "user", converted.Contents[2]["role"])

	parts := converted.Contents[2]["parts"].([]map[string]any)
	assert.Contains(t, parts[0], "functionResponse")
}

func TestToConversePrompt(t *testing.T) {
	converted := ToConversePrompt(types.NewContext(
		types.SystemMessage("be terse"),
		types.UserMessage("hi"),
		types.ToolMessage("tool_1", "result text"),
	))
	require.Len(t, converted.System, 1)
	assert.Equal(t, "be terse", converted.System[0]["text"])

	require.Len(t, converted.Messages, 2)
	// Tool results are carried in user-role messages.
	assert.Equal(t, "user", converted.Messages[1]["role"])
	blocks := converted.Messages[1]["content"].([]map[string]any)
	toolResult := blocks[0]["toolResult"].(map[string]any)
	assert.Equal(t, "tool_1", toolResult["toolUseId"])
}
