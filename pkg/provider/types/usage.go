package types

// Usage carries token counts for a generation. Absent counts are zero at
// the boundary; TotalTokens equals InputTokens+OutputTokens whenever both
// are reported by the provider.
type Usage struct {
	InputTokens     int64 `json:"inputTokens"`
	OutputTokens    int64 `json:"outputTokens"`
	TotalTokens     int64 `json:"totalTokens"`
	ReasoningTokens int64 `json:"reasoningTokens"`
	CachedTokens    int64 `json:"cachedTokens"`
}

// Add merges two usages field-wise. Used by the stream coordinator to fold
// meta chunks into the terminal accumulator.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + other.InputTokens,
		OutputTokens:    u.OutputTokens + other.OutputTokens,
		TotalTokens:     u.TotalTokens + other.TotalTokens,
		ReasoningTokens: u.ReasoningTokens + other.ReasoningTokens,
		CachedTokens:    u.CachedTokens + other.CachedTokens,
	}
}

// Normalize fills TotalTokens from the parts when the provider omitted it.
func (u Usage) Normalize() Usage {
	if u.TotalTokens == 0 && (u.InputTokens != 0 || u.OutputTokens != 0) {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

// CostFor computes the dollar cost of this usage at the model's per-million
// token prices. Returns 0 when the model carries no pricing metadata.
func (u Usage) CostFor(m Model) float64 {
	if m.Cost.Input == 0 && m.Cost.Output == 0 {
		return 0
	}
	return float64(u.InputTokens)*m.Cost.Input/1e6 + float64(u.OutputTokens)*m.Cost.Output/1e6
}

// FinishReason is why the model stopped generating. Unknown provider values
// are carried through verbatim; absent values are the empty string.
type FinishReason string

const (
	// FinishReasonStop indicates a natural stop or stop sequence.
	FinishReasonStop FinishReason = "stop"
	// FinishReasonLength indicates the max token limit was reached.
	FinishReasonLength FinishReason = "length"
	// FinishReasonToolCalls indicates the model wants tools invoked.
	FinishReasonToolCalls FinishReason = "tool_calls"
	// FinishReasonContentFilter indicates content was filtered.
	FinishReasonContentFilter FinishReason = "content_filter"
)
