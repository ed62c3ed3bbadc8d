package ai

import (
	"context"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/schema"
)

// ValidateToolInput checks a model-provided tool input against the tool's
// parameter schema, applying declared defaults for omitted parameters.
// Callers run this before dispatching the tool's Execute callback.
func ValidateToolInput(tool types.Tool, input map[string]any) (map[string]any, error) {
	if input == nil {
		input = map[string]any{}
	}
	for name, param := range tool.Parameters {
		if _, ok := input[name]; !ok && param.Default != nil {
			input[name] = param.Default
		}
	}
	if err := schema.Validate(tool.JSONSchema(), input); err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindValidation,
			"tool input does not match parameter schema", err)
	}
	return input, nil
}

// ExecuteToolCalls validates and runs each tool call in the response
// against the given tools, returning the tool-role messages to append to
// the conversation for the next turn. A failed call produces an error
// result message rather than aborting the loop.
func ExecuteToolCalls(ctx context.Context, response *types.Response, tools []types.Tool) ([]types.Message, error) {
	byName := make(map[string]types.Tool, len(tools))
	for _, tool := range tools {
		byName[tool.Name] = tool
	}

	var messages []types.Message
	for _, call := range response.ToolCalls() {
		tool, ok := byName[call.Name]
		if !ok {
			return nil, llmerrors.Newf(llmerrors.KindValidation,
				"model called unknown tool %q", call.Name)
		}
		if tool.Execute == nil {
			return nil, llmerrors.Newf(llmerrors.KindValidation,
				"tool %q has no executor", call.Name)
		}

		input, err := ValidateToolInput(tool, call.Arguments)
		if err != nil {
			messages = append(messages, errorToolMessage(call, err))
			continue
		}
		result, err := tool.Execute(ctx, input)
		if err != nil {
			messages = append(messages, errorToolMessage(call, err))
			continue
		}
		messages = append(messages, types.Message{
			Role:       types.RoleTool,
			ToolCallID: call.ID,
			Content: []types.ContentPart{types.ToolResultContent{
				ToolCallID: call.ID,
				Name:       call.Name,
				Result:     result,
			}},
		})
	}
	return messages, nil
}

func errorToolMessage(call types.ToolCallContent, err error) types.Message {
	return types.Message{
		Role:       types.RoleTool,
		ToolCallID: call.ID,
		Content: []types.ContentPart{types.ToolResultContent{
			ToolCallID: call.ID,
			Name:       call.Name,
			Result:     err.Error(),
			IsError:    true,
		}},
	}
}
