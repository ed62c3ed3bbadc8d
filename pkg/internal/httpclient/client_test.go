package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

func TestClientDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(Config{})
	resp, err := client.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestClientDo_ErrorStatusMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	client := New(Config{})
	_, err := client.Do(context.Background(), &Request{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`)})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.KindAPIRequest))
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClientDo_RetryAfterPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(Config{})
	_, err := client.Do(context.Background(), &Request{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`)})
	require.Error(t, err)

	var e *llmerrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 7*time.Second, e.RetryAfter)
}

func TestClientDoStream_ErrorReadsBoundedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"overloaded"}`))
	}))
	defer server.Close()

	client := New(Config{})
	_, _, err := client.DoStream(context.Background(), &Request{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestClientDo_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// One request per 50ms, no burst headroom beyond the first.
	interval := 50 * time.Millisecond
	client := New(Config{RateLimit: rate.NewLimiter(rate.Every(interval), 1)})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: server.URL})
		require.NoError(t, err)
	}
	// The second and third requests each wait out the limiter.
	assert.GreaterOrEqual(t, time.Since(start), 2*interval)
}

func TestClientDo_RateLimiterHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(Config{RateLimit: rate.NewLimiter(rate.Every(time.Hour), 1)})

	// First request consumes the only token.
	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Do(ctx, &Request{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.KindAPIRequest))
}

func TestClientDo_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(Config{})
	_, err := client.Do(context.Background(), &Request{
		Method:  http.MethodGet,
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	assert.Error(t, err)
}
