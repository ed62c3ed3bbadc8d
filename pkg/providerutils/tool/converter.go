// Package tool converts canonical tool declarations and tool-choice
// strategies into the shapes each provider family expects.
package tool

import "github.com/digitallysavvy/go-llm/pkg/provider/types"

// ToOpenAIFormat converts tools to the OpenAI functions array.
func ToOpenAIFormat(tools []types.Tool) []map[string]any {
	result := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.JSONSchema(),
			},
		})
	}
	return result
}

// ToAnthropicFormat converts tools to Anthropic's tools array.
func ToAnthropicFormat(tools []types.Tool) []map[string]any {
	result := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		result = append(result, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.JSONSchema(),
		})
	}
	return result
}

// ToGeminiFormat converts tools to Gemini's functionDeclarations wrapper.
func ToGeminiFormat(tools []types.Tool) []map[string]any {
	declarations := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		declarations = append(declarations, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.JSONSchema(),
		})
	}
	return []map[string]any{{"functionDeclarations": declarations}}
}

// ToConverseFormat converts tools to the Bedrock Converse toolConfig.
func ToConverseFormat(tools []types.Tool) map[string]any {
	specs := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, map[string]any{
			"toolSpec": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"inputSchema": map[string]any{"json": t.JSONSchema()},
			},
		})
	}
	return map[string]any{"tools": specs}
}

// ChoiceToOpenAI converts a canonical tool choice to the OpenAI value.
func ChoiceToOpenAI(choice types.ToolChoice) any {
	switch choice.Type {
	case types.ToolChoiceTool:
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": choice.ToolName},
		}
	case types.ToolChoiceRequired:
		return "required"
	case types.ToolChoiceNone:
		return "none"
	default:
		return "auto"
	}
}

// ChoiceToAnthropic converts a canonical tool choice to Anthropic's
// tool_choice object. ToolChoiceNone has no wire form there; callers omit
// tools entirely instead.
func ChoiceToAnthropic(choice types.ToolChoice) map[string]any {
	switch choice.Type {
	case types.ToolChoiceTool:
		return map[string]any{"type": "tool", "name": choice.ToolName}
	case types.ToolChoiceRequired:
		return map[string]any{"type": "any"}
	default:
		return map[string]any{"type": "auto"}
	}
}

// ChoiceToGemini converts a canonical tool choice to Gemini's
// toolConfig.functionCallingConfig.
func ChoiceToGemini(choice types.ToolChoice) map[string]any {
	mode := "AUTO"
	config := map[string]any{}
	switch choice.Type {
	case types.ToolChoiceNone:
		mode = "NONE"
	case types.ToolChoiceRequired:
		mode = "ANY"
	case types.ToolChoiceTool:
		mode = "ANY"
		config["allowedFunctionNames"] = []string{choice.ToolName}
	}
	config["mode"] = mode
	return map[string]any{"functionCallingConfig": config}
}
