package streaming

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Event stream message layout: a 12-byte prelude (total length, headers
// length, prelude CRC, all big-endian uint32), the header bytes, the
// payload, and a trailing message CRC.
const (
	preludeLen    = 12
	messageCRCLen = 4
)

// EventStreamFramer parses the AWS binary event stream framing used by
// Bedrock invoke-with-response-stream bodies.
type EventStreamFramer struct {
	buf []byte
}

// NewEventStreamFramer returns an empty event-stream framer.
func NewEventStreamFramer() *EventStreamFramer {
	return &EventStreamFramer{}
}

// Feed implements Framer.
func (f *EventStreamFramer) Feed(chunk []byte) ([]Event, error) {
	f.buf = append(f.buf, chunk...)

	var events []Event
	for {
		payload, rest, err := nextEventStreamMessage(f.buf)
		if err != nil {
			return events, err
		}
		if payload == nil {
			break
		}
		f.buf = rest

		data := unwrapEventStreamPayload(payload)
		if len(data) == 0 {
			continue
		}
		events = append(events, withParsed(Event{Data: string(data)}))
	}
	return events, nil
}

// nextEventStreamMessage extracts one complete message's payload from buf.
// Returns (nil, buf, nil) while the declared length has not fully arrived.
func nextEventStreamMessage(buf []byte) (payload, rest []byte, err error) {
	if len(buf) < preludeLen {
		return nil, buf, nil
	}
	total := binary.BigEndian.Uint32(buf[0:4])
	headersLen := binary.BigEndian.Uint32(buf[4:8])

	if total < preludeLen+messageCRCLen || headersLen > total-preludeLen-messageCRCLen {
		return nil, buf, fmt.Errorf("malformed event stream prelude (total %d, headers %d)", total, headersLen)
	}
	if uint32(len(buf)) < total {
		return nil, buf, nil
	}

	payloadStart := preludeLen + int(headersLen)
	payloadEnd := int(total) - messageCRCLen
	return buf[payloadStart:payloadEnd], buf[total:], nil
}

// chunkEnvelope matches the two wrappers Bedrock puts around streamed
// payloads: {"chunk":{"bytes":...}} and {"bytes":...}.
type chunkEnvelope struct {
	Chunk *struct {
		Bytes string `json:"bytes"`
	} `json:"chunk"`
	Bytes string `json:"bytes"`
}

// unwrapEventStreamPayload strips the chunk/bytes envelope and base64
// decodes the inner document. Payloads without an envelope pass through.
func unwrapEventStreamPayload(payload []byte) []byte {
	var envelope chunkEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return payload
	}

	encoded := envelope.Bytes
	if envelope.Chunk != nil && envelope.Chunk.Bytes != "" {
		encoded = envelope.Chunk.Bytes
	}
	if encoded == "" {
		return payload
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payload
	}
	return decoded
}
