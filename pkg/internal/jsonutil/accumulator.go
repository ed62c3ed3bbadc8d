// Package jsonutil accumulates the fragmentary JSON providers stream for
// tool-call arguments. Fragments are concatenated per tool-call id until
// the whole parses.
package jsonutil

import (
	"encoding/json"
	"strings"

	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

// ToolCallAccumulator folds streamed tool_call chunks into complete tool
// calls. Fragments arrive keyed by tool-call id; providers may interleave
// fragments of parallel calls.
type ToolCallAccumulator struct {
	order []string
	calls map[string]*pendingCall
}

type pendingCall struct {
	name string
	args strings.Builder
}

// NewToolCallAccumulator returns an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{calls: make(map[string]*pendingCall)}
}

// Feed records one tool_call chunk. Non-tool_call chunks are ignored so
// the accumulator can consume a whole stream unconditionally.
func (a *ToolCallAccumulator) Feed(chunk types.StreamChunk) {
	if chunk.Type != types.ChunkTypeToolCall {
		return
	}
	id := chunk.ToolCallID()
	if id == "" {
		// Providers that never repeat ids within a stream omit them on
		// continuation fragments; those attach to the last open call.
		if len(a.order) == 0 {
			return
		}
		id = a.order[len(a.order)-1]
	}

	call, ok := a.calls[id]
	if !ok {
		call = &pendingCall{}
		a.calls[id] = call
		a.order = append(a.order, id)
	}
	if chunk.Name != "" {
		call.name = chunk.Name
	}
	call.args.WriteString(chunk.Arguments)
}

// Complete reports whether at least one call was accumulated and every
// accumulated argument string parses.
func (a *ToolCallAccumulator) Complete() bool {
	for _, id := range a.order {
		if _, ok := parseArgs(a.calls[id].args.String()); !ok {
			return false
		}
	}
	return len(a.order) > 0
}

// Calls returns the finished tool calls in arrival order. Calls whose
// arguments never parsed are dropped; empty arguments decode to an empty
// object.
func (a *ToolCallAccumulator) Calls() []types.ToolCallContent {
	var out []types.ToolCallContent
	for _, id := range a.order {
		call := a.calls[id]
		args, ok := parseArgs(call.args.String())
		if !ok {
			continue
		}
		out = append(out, types.ToolCallContent{
			ID:        id,
			Name:      call.name,
			Arguments: args,
			Metadata:  map[string]any{"id": id},
		})
	}
	return out
}

// parseArgs decodes an accumulated argument string. Empty input is a valid
// empty object; anything else must be a complete JSON object.
func parseArgs(raw string) (map[string]any, bool) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, true
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, true
}
