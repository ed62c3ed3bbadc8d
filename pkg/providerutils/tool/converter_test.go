package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

var sampleTools = []types.Tool{{
	Name:        "get_weather",
	Description: "weather lookup",
	Parameters: map[string]types.Parameter{
		"city": {Type: "string", Required: true},
	},
}}

func TestToOpenAIFormat(t *testing.T) {
	wire := ToOpenAIFormat(sampleTools)
	require.Len(t, wire, 1)
	assert.Equal(t, "function", wire[0]["type"])
	fn := wire[0]["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
	assert.NotNil(t, fn["parameters"])
}

func TestToAnthropicFormat(t *testing.T) {
	wire := ToAnthropicFormat(sampleTools)
	require.Len(t, wire, 1)
	assert.Equal(t, "get_weather", wire[0]["name"])
	assert.NotNil(t, wire[0]["input_schema"])
}

func TestToGeminiFormat(t *testing.T) {
	wire := ToGeminiFormat(sampleTools)
	require.Len(t, wire, 1)
	declarations := wire[0]["functionDeclarations"].([]map[string]any)
	require.Len(t, declarations, 1)
	assert.Equal(t, "get_weather", declarations[0]["name"])
}

func TestToConverseFormat(t *testing.T) {
	wire := ToConverseFormat(sampleTools)
	specs := wire["tools"].([]map[string]any)
	require.Len(t, specs, 1)
	spec := specs[0]["toolSpec"].(map[string]any)
	assert.Equal(t, "get_weather", spec["name"])
	assert.Contains(t, spec["inputSchema"].(map[string]any), "json")
}

func TestChoiceToOpenAI(t *testing.T) {
	assert.Equal(t, "auto", ChoiceToOpenAI(types.ToolChoice{Type: types.ToolChoiceAuto}))
	assert.Equal(t, "none", ChoiceToOpenAI(types.ToolChoice{Type: types.ToolChoiceNone}))
	assert.Equal(t, "required", ChoiceToOpenAI(types.ToolChoice{Type: types.ToolChoiceRequired}))

	specific := ChoiceToOpenAI(types.ToolChoice{Type: types.ToolChoiceTool, ToolName: "get_weather"}).(map[string]any)
	assert.Equal(t, "get_weather", specific["function"].(map[string]any)["name"])
}

func TestChoiceToAnthropic(t *testing.T) {
	assert.Equal(t, "auto", ChoiceToAnthropic(types.ToolChoice{Type: types.ToolChoiceAuto})["type"])
	assert.Equal(t, "any", ChoiceToAnthropic(types.ToolChoice{Type: types.ToolChoiceRequired})["type"])

	specific := ChoiceToAnthropic(types.ToolChoice{Type: types.ToolChoiceTool, ToolName: "get_weather"})
	assert.Equal(t, "tool", specific["type"])
	assert.Equal(t, "get_weather", specific["name"])
}

func TestChoiceToGemini(t *testing.T) {
	config := ChoiceToGemini(types.ToolChoice{Type: types.ToolChoiceTool, ToolName: "get_weather"})
	fcc := config["functionCallingConfig"].(map[string]any)
	assert.Equal(t, "ANY", fcc["mode"])
	assert.Equal(t, []string{"get_weather"}, fcc["allowedFunctionNames"])

	none := ChoiceToGemini(types.ToolChoice{Type: types.ToolChoiceNone})
	assert.Equal(t, "NONE", none["functionCallingConfig"].(map[string]any)["mode"])
}
