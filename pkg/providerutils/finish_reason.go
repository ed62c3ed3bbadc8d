// Package providerutils holds small helpers shared by provider adapters:
// finish-reason normalization and the wire-format prompt converters in its
// subpackages.
package providerutils

import "github.com/digitallysavvy/go-llm/pkg/provider/types"

// MapOpenAIFinishReason normalizes OpenAI-compatible finish reasons.
// Unknown non-empty values are carried through verbatim so callers can
// still branch on provider-specific reasons.
func MapOpenAIFinishReason(reason string) types.FinishReason {
	switch reason {
	case "":
		return ""
	case "stop", "stop_sequence":
		return types.FinishReasonStop
	case "length":
		return types.FinishReasonLength
	case "tool_calls", "function_call":
		return types.FinishReasonToolCalls
	case "content_filter":
		return types.FinishReasonContentFilter
	default:
		return types.FinishReason(reason)
	}
}

// MapAnthropicStopReason normalizes Anthropic stop reasons.
func MapAnthropicStopReason(reason string) types.FinishReason {
	switch reason {
	case "":
		return ""
	case "end_turn", "stop_sequence":
		return types.FinishReasonStop
	case "max_tokens":
		return types.FinishReasonLength
	case "tool_use":
		return types.FinishReasonToolCalls
	default:
		return types.FinishReason(reason)
	}
}

// MapGeminiFinishReason normalizes Gemini finish reasons. Tool use is not
// signalled via finishReason there; adapters detect it from function-call
// parts instead.
func MapGeminiFinishReason(reason string) types.FinishReason {
	switch reason {
	case "":
		return ""
	case "STOP":
		return types.FinishReasonStop
	case "MAX_TOKENS":
		return types.FinishReasonLength
	case "SAFETY":
		return types.FinishReasonContentFilter
	default:
		return types.FinishReason(reason)
	}
}
