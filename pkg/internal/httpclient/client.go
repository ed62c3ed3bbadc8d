// Package httpclient wraps the shared HTTP connection pool used by every
// provider adapter, maps error statuses into the canonical taxonomy, and
// provides redaction-aware request capture for debugging.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/digitallysavvy/go-llm/pkg/internal/retry"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

// maxErrorBodyBytes caps how much of an error response body is read before
// the stream coordinator gives up on a failed connection.
const maxErrorBodyBytes = 64 * 1024

// DefaultClient is the shared process-wide HTTP client. Providers reuse
// its connection pool; callers never mutate it.
var DefaultClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Request is one provider HTTP exchange.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte

	// Timeout bounds the whole exchange; zero means the config default.
	Timeout time.Duration
}

// Response is a fully-read non-streaming response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Config configures a Client.
type Config struct {
	// Timeout is the default per-request timeout (default 60s).
	Timeout time.Duration

	// RateLimit throttles outgoing requests client-side; nil means
	// unlimited.
	RateLimit *rate.Limiter

	// HTTPClient overrides the shared pool, mainly for tests.
	HTTPClient *http.Client
}

// Client is the transport used by provider adapters.
type Client struct {
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// New creates a Client over the shared pool.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = DefaultClient
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{client: client, timeout: timeout, limiter: cfg.RateLimit}
}

// Do performs a request and reads the whole body. Error statuses map to
// canonical api_request errors with the body attached.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpResp, cancel, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llmerrors.Wrap(llmerrors.KindAPIRequest, "reading response body", err)
	}
	if httpResp.StatusCode >= 400 {
		apiErr := llmerrors.FromStatus(httpResp.StatusCode, body)
		apiErr.RequestBody = req.Body
		apiErr.RetryAfter = retry.ParseRetryAfter(httpResp.Header.Get("Retry-After"))
		return nil, apiErr
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// DoStream performs a request whose body will be consumed incrementally.
// Error statuses read at most maxErrorBodyBytes before failing. On success
// the caller owns the response body and the returned cancel func.
func (c *Client) DoStream(ctx context.Context, req *Request) (*http.Response, context.CancelFunc, error) {
	httpResp, cancel, err := c.send(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if httpResp.StatusCode >= 400 {
		defer cancel()
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		apiErr := llmerrors.FromStatus(httpResp.StatusCode, body)
		apiErr.RequestBody = req.Body
		return nil, nil, apiErr
	}
	return httpResp, cancel, nil
}

// send applies the rate limiter and timeout, then performs the exchange.
func (c *Client) send(ctx context.Context, req *Request) (*http.Response, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, llmerrors.Wrap(llmerrors.KindAPIRequest, "rate limiter", err)
		}
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, req.URL, bodyReader)
	if err != nil {
		cancel()
		return nil, nil, llmerrors.Wrap(llmerrors.KindAPIRequest, "building request", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, nil, llmerrors.Wrap(llmerrors.KindAPIRequest, "request failed", err)
	}
	return httpResp, cancel, nil
}
