package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/go-llm/pkg/internal/httpclient"
	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providers/openaicompat"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/streaming"
)

// sseServer streams the given SSE events and then closes the body.
func sseServer(t *testing.T, events ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, event := range events {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}))
}

func openStream(t *testing.T, server *httptest.Server, receiveTimeout time.Duration) *Response {
	t.Helper()
	adapter := openaicompat.New(openaicompat.Config{ID: "testai", BaseURL: server.URL})
	resp, err := Open(context.Background(), httpclient.New(httpclient.Config{}), adapter,
		&provider.HTTPRequest{
			Method:  http.MethodPost,
			URL:     server.URL + "/chat/completions",
			Headers: map[string]string{"Accept": "text/event-stream"},
			Body:    []byte(`{}`),
			Stream:  true,
			Framing: streaming.FormatSSE,
		},
		types.NewModel("testai", "test-1"), receiveTimeout)
	require.NoError(t, err)
	return resp
}

func collect(t *testing.T, resp *Response) []types.StreamChunk {
	t.Helper()
	var chunks []types.StreamChunk
	for {
		chunk, err := resp.Next()
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, *chunk)
	}
}

func TestStream_ChunksInOrder(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`[DONE]`,
	)
	defer server.Close()

	resp := openStream(t, server, 0)
	chunks := collect(t, resp)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Hel", chunks[0].Text)
	assert.Equal(t, "lo", chunks[1].Text)
	assert.Equal(t, StateComplete, resp.State())
}

func TestStream_ReasoningThenContentPreservesInterleaving(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"reasoning":"I should"}}]}`,
		`{"choices":[{"delta":{"content":"Hello"}}]}`,
		`[DONE]`,
	)
	defer server.Close()

	chunks := collect(t, openStream(t, server, 0))
	require.Len(t, chunks, 2)
	assert.Equal(t, types.ChunkTypeReasoning, chunks[0].Type)
	assert.Equal(t, "I should", chunks[0].Text)
	assert.Equal(t, types.ChunkTypeContent, chunks[1].Type)
	assert.Equal(t, "Hello", chunks[1].Text)
}

func TestStream_MetaResolvesOnExhaustion(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`,
		`[DONE]`,
	)
	defer server.Close()

	resp := openStream(t, server, 0)
	collect(t, resp)

	meta := resp.Meta()
	require.NoError(t, meta.Err)
	assert.Equal(t, types.FinishReasonStop, meta.FinishReason)
	assert.Equal(t, int64(5), meta.Usage.InputTokens)
	assert.Equal(t, int64(2), meta.Usage.OutputTokens)
	assert.Equal(t, int64(7), meta.Usage.TotalTokens)
}

func TestStream_CostComputedFromModelPricing(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":1000000,"completion_tokens":0}}`,
		`[DONE]`,
	)
	defer server.Close()

	adapter := openaicompat.New(openaicompat.Config{ID: "testai", BaseURL: server.URL})
	model := types.NewModel("testai", "test-1")
	model.Cost = types.Cost{Input: 2.0, Output: 8.0}

	resp, err := Open(context.Background(), httpclient.New(httpclient.Config{}), adapter,
		&provider.HTTPRequest{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`), Framing: streaming.FormatSSE},
		model, 0)
	require.NoError(t, err)
	collect(t, resp)
	assert.InDelta(t, 2.0, resp.Meta().Cost, 1e-9)
}

func TestStream_NonOKStatusMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	adapter := openaicompat.New(openaicompat.Config{ID: "testai", BaseURL: server.URL})
	_, err := Open(context.Background(), httpclient.New(httpclient.Config{}), adapter,
		&provider.HTTPRequest{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`), Framing: streaming.FormatSSE},
		types.NewModel("testai", "test-1"), 0)
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.KindAPIRequest))
	assert.Contains(t, err.Error(), "slow down")
}

func TestStream_CancelResolvesMetaPromptly(t *testing.T) {
	// A server that trickles forever.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; ; i++ {
			select {
			case <-r.Context().Done():
				return
			default:
			}
			_, _ = fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
			flusher.Flush()
			time.Sleep(10 * time.Millisecond)
		}
	}))
	defer server.Close()

	resp := openStream(t, server, 0)
	_, err := resp.Next()
	require.NoError(t, err)

	require.NoError(t, resp.Close())

	done := make(chan Meta, 1)
	go func() { done <- resp.Meta() }()
	select {
	case meta := <-done:
		assert.Error(t, meta.Err)
		assert.Equal(t, StateCancelled, resp.State())
	case <-time.After(2 * time.Second):
		t.Fatal("metadata future did not resolve after Close")
	}

	// No further chunks after cancellation.
	_, err = resp.Next()
	assert.Error(t, err)
}

func TestStream_ByteChunkedTransportEquivalent(t *testing.T) {
	// The server dribbles the body byte by byte; the chunk sequence
	// must match the all-at-once case.
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < len(body); i++ {
			_, _ = w.Write([]byte{body[i]})
			flusher.Flush()
		}
	}))
	defer server.Close()

	chunks := collect(t, openStream(t, server, 0))
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hi", chunks[0].Text)
}

func TestJoin(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"reasoning":"I should"}}]}`,
		`{"choices":[{"delta":{"content":"Hello"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":2}}`,
		`[DONE]`,
	)
	defer server.Close()

	resp := openStream(t, server, 0)
	joined, err := Join(resp, &types.Response{
		Model:   "test-1",
		Context: types.NewContext(types.UserMessage("hi")),
	})
	require.NoError(t, err)

	// Reasoning precedes content in the joined assistant message.
	require.Len(t, joined.Message.Content, 2)
	assert.Equal(t, "reasoning", joined.Message.Content[0].ContentType())
	assert.Equal(t, "I should", joined.Message.Content[0].(types.ReasoningContent).Text)
	assert.Equal(t, "Hello", joined.Text())

	assert.Equal(t, types.FinishReasonStop, joined.FinishReason)
	assert.Equal(t, int64(6), joined.Usage.TotalTokens)

	// The assistant message is appended to the context.
	require.Len(t, joined.Context, 2)
	assert.Equal(t, types.RoleAssistant, joined.Context[1].Role)
}

func TestJoin_ToolCallFragments(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"f","arguments":"{\"a\":"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}}]}`,
		`[DONE]`,
	)
	defer server.Close()

	resp := openStream(t, server, 0)
	joined, err := Join(resp, nil)
	require.NoError(t, err)

	calls := joined.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "f", calls[0].Name)
	assert.Equal(t, map[string]any{"a": float64(1)}, calls[0].Arguments)
}
