package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

func weatherTool(result any, execErr error) types.Tool {
	return types.Tool{
		Name:        "get_weather",
		Description: "weather lookup",
		Parameters: map[string]types.Parameter{
			"city":  {Type: "string", Required: true},
			"units": {Type: "string", Default: "metric"},
		},
		Execute: func(ctx context.Context, input map[string]any) (any, error) {
			return result, execErr
		},
	}
}

func TestValidateToolInput_AppliesDefaults(t *testing.T) {
	input, err := ValidateToolInput(weatherTool(nil, nil), map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, "metric", input["units"])
}

func TestValidateToolInput_MissingRequired(t *testing.T) {
	_, err := ValidateToolInput(weatherTool(nil, nil), map[string]any{})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.KindValidation))
}

func TestValidateToolInput_WrongType(t *testing.T) {
	_, err := ValidateToolInput(weatherTool(nil, nil), map[string]any{"city": 42})
	assert.Error(t, err)
}

func responseWithToolCall(name string, args map[string]any) *types.Response {
	return &types.Response{
		Message: types.AssistantMessage(types.ToolCallContent{
			ID:        "call_1",
			Name:      name,
			Arguments: args,
		}),
	}
}

func TestExecuteToolCalls(t *testing.T) {
	response := responseWithToolCall("get_weather", map[string]any{"city": "Oslo"})
	messages, err := ExecuteToolCalls(context.Background(), response, []types.Tool{weatherTool("12C", nil)})
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.Equal(t, types.RoleTool, messages[0].Role)
	assert.Equal(t, "call_1", messages[0].ToolCallID)
	result := messages[0].Content[0].(types.ToolResultContent)
	assert.Equal(t, "12C", result.Result)
	assert.False(t, result.IsError)
}

func TestExecuteToolCalls_ExecutionErrorBecomesErrorResult(t *testing.T) {
	response := responseWithToolCall("get_weather", map[string]any{"city": "Oslo"})
	messages, err := ExecuteToolCalls(context.Background(), response,
		[]types.Tool{weatherTool(nil, fmt.Errorf("upstream down"))})
	require.NoError(t, err)
	require.Len(t, messages, 1)

	result := messages[0].Content[0].(types.ToolResultContent)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Result, "upstream down")
}

func TestExecuteToolCalls_InvalidInputBecomesErrorResult(t *testing.T) {
	response := responseWithToolCall("get_weather", map[string]any{})
	messages, err := ExecuteToolCalls(context.Background(), response, []types.Tool{weatherTool("x", nil)})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Content[0].(types.ToolResultContent).IsError)
}

func TestExecuteToolCalls_UnknownTool(t *testing.T) {
	response := responseWithToolCall("nope", map[string]any{})
	_, err := ExecuteToolCalls(context.Background(), response, []types.Tool{weatherTool("x", nil)})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.KindValidation))
}
