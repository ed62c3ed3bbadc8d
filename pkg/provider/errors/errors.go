// Package errors defines the canonical error taxonomy for the SDK. Every
// failure surfaced by a public operation is an *Error carrying a Kind, a
// human-readable reason, and whatever HTTP context was available.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error.
type Kind string

const (
	// KindInvalidParameter is a caller option error (bad value, mutually
	// exclusive pair, unsupported option with no translation).
	KindInvalidParameter Kind = "invalid_parameter"
	// KindInvalidProvider is an unknown or unimplemented provider id.
	KindInvalidProvider Kind = "invalid_provider"
	// KindInvalidModel is an unknown model for a known provider.
	KindInvalidModel Kind = "invalid_model"
	// KindInvalidModelSpec is a malformed "provider:model" string.
	KindInvalidModelSpec Kind = "invalid_model_spec"
	// KindInvalidSchema is a malformed structured-output schema.
	KindInvalidSchema Kind = "invalid_schema"
	// KindInvalidMessage is a malformed canonical message or context.
	KindInvalidMessage Kind = "invalid_message"
	// KindAPIRequest is a status-carrying provider HTTP failure.
	KindAPIRequest Kind = "api_request"
	// KindAPIResponse is a provider response the SDK could not decode.
	KindAPIResponse Kind = "api_response"
	// KindSchemaValidation is a structured output failing its schema.
	KindSchemaValidation Kind = "schema_validation"
	// KindStream is a transport or framing failure mid-stream.
	KindStream Kind = "stream"
	// KindValidation is a general validation failure.
	KindValidation Kind = "validation"
	// KindUnknown is everything else.
	KindUnknown Kind = "unknown"
)

// Error is the canonical error type.
type Error struct {
	Kind   Kind
	Reason string

	// Status is the HTTP status code when the error came from a provider
	// response; zero otherwise.
	Status int

	// ResponseBody and RequestBody carry raw payloads for debugging.
	// Capture utilities redact credentials before these are persisted.
	ResponseBody []byte
	RequestBody  []byte

	// RetryAfter is the provider's Retry-After hint on rate-limit
	// responses; zero when absent.
	RetryAfter time.Duration

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given kind and reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf builds an *Error with a formatted reason.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around a cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// statusReasons names the well-known HTTP status submappings.
var statusReasons = map[int]string{
	http.StatusBadRequest:      "bad request",
	http.StatusUnauthorized:    "unauthorized",
	http.StatusForbidden:       "forbidden",
	http.StatusNotFound:        "not found",
	http.StatusTooManyRequests: "rate limited",
}

// FromStatus maps an HTTP error response to a canonical api_request error.
// The provider error body is probed for a human-readable reason.
func FromStatus(status int, body []byte) *Error {
	reason := statusReasons[status]
	if reason == "" {
		if status >= 500 {
			reason = "server error"
		} else {
			reason = http.StatusText(status)
		}
	}
	if probed := ProbeMessage(body); probed != "" {
		reason = fmt.Sprintf("%s: %s", reason, probed)
	}
	return &Error{
		Kind:         KindAPIRequest,
		Reason:       reason,
		Status:       status,
		ResponseBody: body,
	}
}

// IsRetryable reports whether err may be retried for an idempotent
// operation: transport failures, 429 and 5xx.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind != KindAPIRequest {
		return false
	}
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// probeKeys is the order provider error bodies are searched for a message.
var probeKeys = []string{"message", "detail", "details", "error_description"}

// ProbeMessage extracts a human-readable message from a provider JSON error
// body. Probe order: error.message, error (when a string), then message,
// detail, details, error_description; first match wins.
func ProbeMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if errVal, ok := payload["error"]; ok {
		switch v := errVal.(type) {
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if v != "" {
				return v
			}
		}
	}
	for _, key := range probeKeys {
		if msg, ok := payload[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}
