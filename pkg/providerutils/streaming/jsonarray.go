package streaming

import "bytes"

// JSONArrayFramer recovers elements from a JSON array streamed over a
// chunked body, emitting one event per complete element. Gemini streams
// this shape when SSE is not requested.
type JSONArrayFramer struct {
	buf     []byte
	started bool
}

// NewJSONArrayFramer returns an empty JSON-array framer.
func NewJSONArrayFramer() *JSONArrayFramer {
	return &JSONArrayFramer{}
}

// Feed implements Framer.
func (f *JSONArrayFramer) Feed(chunk []byte) ([]Event, error) {
	f.buf = append(f.buf, chunk...)

	var events []Event
	for {
		f.buf = bytes.TrimLeft(f.buf, " \t\r\n")
		if len(f.buf) == 0 {
			break
		}

		switch f.buf[0] {
		case '[':
			if f.started {
				// Nested array element; fall through to the object
				// scanner below.
				break
			}
			f.started = true
			f.buf = f.buf[1:]
			continue
		case ',':
			f.buf = f.buf[1:]
			continue
		case ']':
			f.buf = f.buf[1:]
			continue
		}

		end := completeJSONValue(f.buf)
		if end < 0 {
			break
		}
		raw := f.buf[:end]
		f.buf = f.buf[end:]
		events = append(events, withParsed(Event{Data: string(raw)}))
	}
	return events, nil
}

// completeJSONValue returns the length of the first complete JSON object or
// array at the start of buf, or -1 when more bytes are needed. Tracks
// string and escape state so braces inside strings do not split elements.
func completeJSONValue(buf []byte) int {
	depth := 0
	inString := false
	escaped := false
	for i, b := range buf {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
