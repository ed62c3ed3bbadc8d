// Package streaming contains the provider-agnostic framers that recover
// discrete events from a chunked HTTP response body: text Server-Sent
// Events, the AWS binary event stream, and the JSON-array fallback some
// Gemini configurations use. Framers are chunk-boundary safe: feeding a
// body in any chunking, down to one byte at a time, produces the same
// event sequence as feeding it whole.
package streaming

import "encoding/json"

// Format selects the frame grammar of a streaming response body.
type Format string

const (
	// FormatSSE is text/event-stream framing.
	FormatSSE Format = "sse"
	// FormatEventStream is the AWS binary event stream
	// (application/vnd.amazon.eventstream).
	FormatEventStream Format = "aws-event-stream"
	// FormatJSONArray is a JSON array streamed element by element.
	FormatJSONArray Format = "json-array"
)

// doneSentinel terminates OpenAI-style SSE streams.
const doneSentinel = "[DONE]"

// Event is one framed unit recovered from the response body.
type Event struct {
	// Data is the raw event payload.
	Data string

	// Parsed is the payload decoded as a JSON object, when it is one.
	// Sentinels such as "[DONE]" survive as raw Data with Parsed nil.
	Parsed map[string]any

	// Event and ID are the optional SSE fields of the same name.
	Event string
	ID    string

	// Retry is the SSE reconnect hint in milliseconds; zero when absent
	// or unparseable.
	Retry int
}

// IsDone reports whether the event is the stream-terminating sentinel.
func (e Event) IsDone() bool { return e.Data == doneSentinel }

// withParsed attempts a JSON decode of the data; on success the map form
// is attached, otherwise the raw string stands alone.
func withParsed(e Event) Event {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(e.Data), &parsed); err == nil {
		e.Parsed = parsed
	}
	return e
}

// Framer accumulates transport chunks and yields complete events. Partial
// trailing bytes are buffered until the next feed.
type Framer interface {
	// Feed appends a transport chunk and returns every event completed
	// by it.
	Feed(chunk []byte) ([]Event, error)
}

// NewFramer returns a framer for the given format.
func NewFramer(format Format) Framer {
	switch format {
	case FormatEventStream:
		return NewEventStreamFramer()
	case FormatJSONArray:
		return NewJSONArrayFramer()
	default:
		return NewSSEFramer()
	}
}
