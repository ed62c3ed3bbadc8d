package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

func sseServer(t *testing.T, events ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, event := range events {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}))
}

func TestStreamText(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,"completion_tokens":2}}`,
		`[DONE]`,
	)
	defer server.Close()

	streamResp, err := StreamText(context.Background(), Request{
		Model:    "testai:test-1",
		Prompt:   "hi",
		Options:  &provider.CallOptions{APIKey: "test-key"},
		Registry: testRegistry(t, server.URL),
	})
	require.NoError(t, err)

	var text string
	for {
		chunk, nextErr := streamResp.Next()
		if nextErr == io.EOF {
			break
		}
		require.NoError(t, nextErr)
		if chunk.Type == types.ChunkTypeContent {
			text += chunk.Text
		}
	}
	assert.Equal(t, "Hello", text)

	meta := streamResp.Meta()
	require.NoError(t, meta.Err)
	assert.Equal(t, types.FinishReasonStop, meta.FinishReason)
	assert.Equal(t, int64(4), meta.Usage.TotalTokens)
}

func TestStreamText_JoinText(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"delta":{"reasoning":"thinking"}}]}`,
		`{"choices":[{"delta":{"content":"answer"}}]}`,
		`[DONE]`,
	)
	defer server.Close()

	req := Request{
		Model:    "testai:test-1",
		Context:  types.NewContext(types.UserMessage("question")),
		Options:  &provider.CallOptions{APIKey: "test-key"},
		Registry: testRegistry(t, server.URL),
	}
	streamResp, err := StreamText(context.Background(), req)
	require.NoError(t, err)

	joined, err := JoinText(req, streamResp)
	require.NoError(t, err)
	require.Len(t, joined.Message.Content, 2)
	assert.Equal(t, "reasoning", joined.Message.Content[0].ContentType())
	assert.Equal(t, "answer", joined.Text())
	require.Len(t, joined.Context, 2)
}

func TestStreamText_CloseBeforeExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			default:
			}
			_, _ = fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
			flusher.Flush()
		}
	}))
	defer server.Close()

	streamResp, err := StreamText(context.Background(), Request{
		Model:    "testai:test-1",
		Prompt:   "hi",
		Options:  &provider.CallOptions{APIKey: "test-key"},
		Registry: testRegistry(t, server.URL),
	})
	require.NoError(t, err)

	_, err = streamResp.Next()
	require.NoError(t, err)
	require.NoError(t, streamResp.Close())

	meta := streamResp.Meta()
	assert.Error(t, meta.Err)
}
