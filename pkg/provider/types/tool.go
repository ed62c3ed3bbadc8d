package types

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

// toolNameRe is the identifier shape providers accept for tool names.
var toolNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// maxToolNameLen is the longest tool name accepted across providers.
const maxToolNameLen = 64

// Parameter describes one tool parameter.
type Parameter struct {
	// Type is the JSON Schema type ("string", "number", "integer",
	// "boolean", "array", "object").
	Type string `json:"type"`

	// Required marks the parameter as mandatory.
	Required bool `json:"required,omitempty"`

	// Default is applied when the model omits the parameter.
	Default any `json:"default,omitempty"`

	// Doc describes the parameter to the model.
	Doc string `json:"doc,omitempty"`
}

// ToolExecutor runs a tool. The runtime validates input against the tool's
// parameter schema before dispatch; invocation itself is the caller's job.
type ToolExecutor func(ctx context.Context, input map[string]any) (any, error)

// Tool is a function the model may request to call.
type Tool struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]Parameter `json:"parameters"`

	// RawSchema, when set, is used verbatim as the tool's JSON Schema in
	// place of the rendered Parameters. The structured-output engine
	// synthesizes tools this way.
	RawSchema map[string]any `json:"rawSchema,omitempty"`

	// Execute is not serialized; it is invoked by the caller after the
	// runtime validates the model-provided input.
	Execute ToolExecutor `json:"-"`
}

// Validate checks the tool invariants.
func (t Tool) Validate() error {
	if !toolNameRe.MatchString(t.Name) {
		return fmt.Errorf("invalid tool name %q", t.Name)
	}
	if len(t.Name) > maxToolNameLen {
		return fmt.Errorf("tool name %q exceeds %d characters", t.Name, maxToolNameLen)
	}
	return nil
}

// JSONSchema renders the parameter schema as a JSON Schema object suitable
// for provider tool declarations and for validation. A RawSchema is
// returned verbatim.
func (t Tool) JSONSchema() map[string]any {
	if t.RawSchema != nil {
		return t.RawSchema
	}
	properties := make(map[string]any, len(t.Parameters))
	var required []string
	for name, p := range t.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Doc != "" {
			prop["description"] = p.Doc
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToolChoiceType selects the tool-choice strategy.
type ToolChoiceType string

const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto ToolChoiceType = "auto"
	// ToolChoiceNone forbids tool calls.
	ToolChoiceNone ToolChoiceType = "none"
	// ToolChoiceRequired forces at least one tool call.
	ToolChoiceRequired ToolChoiceType = "required"
	// ToolChoiceTool forces a specific named tool.
	ToolChoiceTool ToolChoiceType = "tool"
)

// ToolChoice specifies how the model should choose among declared tools.
type ToolChoice struct {
	Type ToolChoiceType `json:"type"`

	// ToolName is set when Type is ToolChoiceTool.
	ToolName string `json:"toolName,omitempty"`
}
