package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	"github.com/digitallysavvy/go-llm/pkg/registry"
	"github.com/digitallysavvy/go-llm/pkg/telemetry"
)

// newSpanRecorder returns an in-memory span recorder and a tracer
// feeding it.
func newSpanRecorder() (*tracetest.SpanRecorder, trace.Tracer) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return recorder, tp.Tracer("test")
}

// spanAttr returns the value of an attribute on a recorded span.
func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestGenerateText_TelemetrySpan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletion("Hello!", "stop")))
	}))
	defer server.Close()

	recorder, tracer := newSpanRecorder()
	_, err := GenerateText(context.Background(), Request{
		Model:    "testai:test-1",
		Prompt:   "hi",
		Options:  &provider.CallOptions{APIKey: "test-key"},
		Registry: testRegistry(t, server.URL),
		Telemetry: &telemetry.Settings{
			IsEnabled:  true,
			FunctionID: "greeting",
			Metadata: map[string]attribute.Value{
				"team": attribute.StringValue("core"),
			},
			Tracer: tracer,
		},
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	// The function id is appended to the span name.
	assert.Equal(t, "ai.generate_text.greeting", span.Name())

	op, ok := spanAttr(span, "llm.operation")
	require.True(t, ok)
	assert.Equal(t, "ai.generate_text", op.AsString())

	model, ok := spanAttr(span, "llm.model")
	require.True(t, ok)
	assert.Equal(t, "testai:test-1", model.AsString())

	callID, ok := spanAttr(span, "llm.call_id")
	require.True(t, ok)
	assert.NotEmpty(t, callID.AsString())

	team, ok := spanAttr(span, "llm.telemetry.metadata.team")
	require.True(t, ok)
	assert.Equal(t, "core", team.AsString())

	// Usage lands on the span once the call completes.
	input, ok := spanAttr(span, "llm.usage.input_tokens")
	require.True(t, ok)
	assert.Equal(t, int64(3), input.AsInt64())
	output, ok := spanAttr(span, "llm.usage.output_tokens")
	require.True(t, ok)
	assert.Equal(t, int64(5), output.AsInt64())
}

func TestGenerateText_TelemetryRecordsError(t *testing.T) {
	recorder, tracer := newSpanRecorder()
	_, err := GenerateText(context.Background(), Request{
		Model:    "invalid",
		Prompt:   "hi",
		Registry: registry.New(),
		Telemetry: &telemetry.Settings{
			IsEnabled: true,
			Tracer:    tracer,
		},
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	// Errors are recorded as exception events; no usage attributes.
	var sawException bool
	for _, event := range span.Events() {
		if event.Name == "exception" {
			sawException = true
		}
	}
	assert.True(t, sawException)
	_, ok := spanAttr(span, "llm.usage.input_tokens")
	assert.False(t, ok)
}

func TestGenerateText_TelemetryDisabledEmitsNoSpans(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletion("Hello!", "stop")))
	}))
	defer server.Close()

	recorder, tracer := newSpanRecorder()
	_, err := GenerateText(context.Background(), Request{
		Model:    "testai:test-1",
		Prompt:   "hi",
		Options:  &provider.CallOptions{APIKey: "test-key"},
		Registry: testRegistry(t, server.URL),
		Telemetry: &telemetry.Settings{
			IsEnabled: false,
			Tracer:    tracer,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, recorder.Ended())
}

func TestStreamText_TelemetrySpanResolvesWithStream(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":2}}`,
		`[DONE]`,
	)
	defer server.Close()

	recorder, tracer := newSpanRecorder()
	streamResp, err := StreamText(context.Background(), Request{
		Model:     "testai:test-1",
		Prompt:    "hi",
		Options:   &provider.CallOptions{APIKey: "test-key"},
		Registry:  testRegistry(t, server.URL),
		Telemetry: &telemetry.Settings{IsEnabled: true, Tracer: tracer},
	})
	require.NoError(t, err)

	// The span closes with the stream's terminal metadata, not the
	// StreamText return.
	for {
		if _, nextErr := streamResp.Next(); nextErr != nil {
			break
		}
	}
	meta := streamResp.Meta()
	require.NoError(t, meta.Err)

	require.Eventually(t, func() bool {
		return len(recorder.Ended()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	span := recorder.Ended()[0]
	assert.Equal(t, "ai.stream_text", span.Name())
	input, ok := spanAttr(span, "llm.usage.input_tokens")
	require.True(t, ok)
	assert.Equal(t, int64(4), input.AsInt64())
}
