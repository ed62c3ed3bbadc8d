package streaming

import (
	"bytes"
	"strconv"
	"strings"
)

// SSEFramer parses text/event-stream bodies incrementally. Events are
// separated by a blank line; multiple data: lines concatenate with "\n".
type SSEFramer struct {
	buf []byte

	// jsonArray delegates the rest of the body when it opens with "[",
	// which is how some Gemini configurations stream.
	jsonArray *JSONArrayFramer
	decided   bool
}

// NewSSEFramer returns an empty SSE framer.
func NewSSEFramer() *SSEFramer {
	return &SSEFramer{}
}

// Feed implements Framer.
func (f *SSEFramer) Feed(chunk []byte) ([]Event, error) {
	if f.jsonArray != nil {
		return f.jsonArray.Feed(chunk)
	}

	f.buf = append(f.buf, chunk...)

	// Sniff the body shape once non-whitespace arrives. A leading "["
	// means the provider replied with a JSON array instead of SSE.
	if !f.decided {
		trimmed := bytes.TrimLeft(f.buf, " \t\r\n")
		if len(trimmed) == 0 {
			return nil, nil
		}
		f.decided = true
		if trimmed[0] == '[' {
			f.jsonArray = NewJSONArrayFramer()
			buffered := f.buf
			f.buf = nil
			return f.jsonArray.Feed(buffered)
		}
	}

	var events []Event
	for {
		event, rest, ok := nextSSEEvent(f.buf)
		if !ok {
			break
		}
		f.buf = rest
		if event != nil {
			events = append(events, withParsed(*event))
		}
	}
	return events, nil
}

// nextSSEEvent extracts one complete event from buf. The third return is
// false when no blank-line terminator has arrived yet.
func nextSSEEvent(buf []byte) (*Event, []byte, bool) {
	end, sepLen := findEventEnd(buf)
	if end < 0 {
		return nil, buf, false
	}
	raw := buf[:end]
	rest := buf[end+sepLen:]

	event := parseSSEBlock(string(raw))
	return event, rest, true
}

// findEventEnd locates the first blank-line separator ("\n\n" or
// "\r\n\r\n"), returning its offset and length.
func findEventEnd(buf []byte) (int, int) {
	lf := bytes.Index(buf, []byte("\n\n"))
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, 4
	default:
		return lf, 2
	}
}

// parseSSEBlock parses the field lines of one event. Returns nil when the
// block carried nothing (comments only).
func parseSSEBlock(block string) *Event {
	var (
		event     Event
		dataLines []string
		seen      bool
	)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value := line, ""
		if idx := strings.Index(line, ":"); idx >= 0 {
			field = line[:idx]
			value = strings.TrimPrefix(line[idx+1:], " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			seen = true
		case "event":
			event.Event = value
			seen = true
		case "id":
			event.ID = value
			seen = true
		case "retry":
			// Invalid integers are ignored per the SSE grammar.
			if retry, err := strconv.Atoi(value); err == nil {
				event.Retry = retry
			}
		}
	}
	if !seen {
		return nil
	}
	event.Data = strings.Join(dataLines, "\n")
	return &event
}
