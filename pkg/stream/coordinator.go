// Package stream owns the streaming HTTP lifecycle: it reads the chunked
// response body, runs the framer and the adapter's event decoder, and
// exposes the result as a lazy chunk sequence plus a deferred terminal
// metadata record. One background worker per stream; closing the Response,
// or cancelling the context passed to Open, cancels the transport and the
// worker. Dropping a Response without closing it does not cancel either.
package stream

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/digitallysavvy/go-llm/pkg/internal/httpclient"
	"github.com/digitallysavvy/go-llm/pkg/internal/jsonutil"
	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/streaming"
)

// State names the coordinator lifecycle phases.
type State string

const (
	// StateConnecting covers the exchange up to the response status.
	StateConnecting State = "connecting"
	// StateStreaming covers body consumption.
	StateStreaming State = "streaming"
	// StateComplete is normal termination (sentinel or end of body).
	StateComplete State = "complete"
	// StateError is termination by transport or decode failure.
	StateError State = "error"
	// StateCancelled is termination by Close or context cancellation.
	StateCancelled State = "cancelled"
)

// readBufSize is the transport read granularity.
const readBufSize = 8 * 1024

// Meta is the terminal metadata resolved when a stream ends.
type Meta struct {
	Usage        types.Usage
	FinishReason types.FinishReason
	Cost         float64

	// Err is the terminal error for error or cancelled streams; nil on
	// completion. Usage holds whatever accumulated before the end.
	Err error
}

// Response is a live streaming response. Chunks are pulled with Next;
// Meta blocks until the terminal metadata resolves. Close is safe to call
// at any time and from any goroutine.
type Response struct {
	Model types.Model

	chunks   chan types.StreamChunk
	metaOnce sync.Once
	metaDone chan struct{}
	meta     Meta

	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    chan struct{}

	mu    sync.Mutex
	state State
}

// Open issues the streaming request and starts the worker. The returned
// Response owns the transport; the caller must exhaust or Close it.
func Open(ctx context.Context, client *httpclient.Client, adapter provider.Adapter, req *provider.HTTPRequest, model types.Model, receiveTimeout time.Duration) (*Response, error) {
	workerCtx, cancelWorker := context.WithCancel(ctx)

	httpResp, cancelReq, err := client.DoStream(workerCtx, &httpclient.Request{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Body:    req.Body,
		// Streaming bodies outlive the default exchange timeout; the
		// receive timeout below bounds inter-frame gaps instead.
		Timeout: 24 * time.Hour,
	})
	if err != nil {
		cancelWorker()
		return nil, err
	}

	resp := &Response{
		Model:    model,
		chunks:   make(chan types.StreamChunk),
		metaDone: make(chan struct{}),
		closed:   make(chan struct{}),
		state:    StateStreaming,
		cancel: func() {
			cancelWorker()
			cancelReq()
		},
	}

	go resp.run(workerCtx, httpResp.Body, streaming.NewFramer(req.Framing), adapter, receiveTimeout)
	return resp, nil
}

// run is the worker: transport chunk -> framer -> adapter decoder ->
// consumer channel, with usage folding into the terminal accumulator.
func (r *Response) run(ctx context.Context, body io.ReadCloser, framer streaming.Framer, adapter provider.Adapter, receiveTimeout time.Duration) {
	defer body.Close()
	defer close(r.chunks)

	var watchdog *time.Timer
	if receiveTimeout > 0 {
		watchdog = time.AfterFunc(receiveTimeout, func() { r.cancel() })
		defer watchdog.Stop()
	}

	buf := make([]byte, readBufSize)
	for {
		n, readErr := body.Read(buf)
		if watchdog != nil {
			watchdog.Reset(receiveTimeout)
		}

		if n > 0 {
			events, err := framer.Feed(buf[:n])
			if err != nil {
				r.finish(StateError, llmerrors.Wrap(llmerrors.KindStream, "frame parsing failed", err))
				return
			}
			for _, event := range events {
				if event.IsDone() {
					r.finish(StateComplete, nil)
					return
				}
				chunks, err := adapter.DecodeStreamEvent(event, r.Model)
				if err != nil {
					r.finish(StateError, llmerrors.Wrap(llmerrors.KindStream, "decoding stream event", err))
					return
				}
				for _, chunk := range chunks {
					if chunk.Type == types.ChunkTypeMeta {
						r.mergeMeta(chunk)
					}
					select {
					case r.chunks <- chunk:
					case <-ctx.Done():
						r.finish(StateCancelled, cancelledErr(ctx))
						return
					}
				}
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				r.finish(StateComplete, nil)
				return
			}
			if ctx.Err() != nil {
				r.finish(StateCancelled, cancelledErr(ctx))
				return
			}
			r.finish(StateError, llmerrors.Wrap(llmerrors.KindStream, "reading stream body", readErr))
			return
		}
	}
}

// mergeMeta folds a meta chunk into the terminal accumulator. Providers
// may split usage across several meta events.
func (r *Response) mergeMeta(chunk types.StreamChunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chunk.Usage != nil {
		r.meta.Usage = r.meta.Usage.Add(*chunk.Usage)
	}
	if chunk.FinishReason != "" {
		r.meta.FinishReason = chunk.FinishReason
	}
}

// finish records the terminal state and resolves the metadata future
// exactly once, with partial usage preserved.
func (r *Response) finish(state State, err error) {
	r.metaOnce.Do(func() {
		r.mu.Lock()
		r.state = state
		r.meta.Usage = r.meta.Usage.Normalize()
		r.meta.Cost = r.meta.Usage.CostFor(r.Model)
		r.meta.Err = err
		r.mu.Unlock()
		close(r.metaDone)
		// The stream is over; release the transport context.
		r.cancel()
	})
}

// Next returns the next chunk. It returns io.EOF on normal completion and
// the terminal error on failure or cancellation.
func (r *Response) Next() (*types.StreamChunk, error) {
	// A closed stream never yields further chunks, even when some were
	// already in flight.
	select {
	case <-r.closed:
		if err := r.Meta().Err; err != nil {
			return nil, err
		}
		return nil, io.EOF
	default:
	}

	select {
	case <-r.closed:
		if err := r.Meta().Err; err != nil {
			return nil, err
		}
		return nil, io.EOF
	case chunk, ok := <-r.chunks:
		if !ok {
			meta := r.Meta()
			if meta.Err != nil {
				return nil, meta.Err
			}
			return nil, io.EOF
		}
		return &chunk, nil
	}
}

// Meta blocks until the stream terminates and returns the terminal
// metadata. Consuming the stream to exhaustion always resolves it.
func (r *Response) Meta() Meta {
	<-r.metaDone
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta
}

// State returns the current lifecycle phase.
func (r *Response) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels the stream: the transport is closed, the worker stops,
// and the metadata future resolves with partial usage and a cancellation
// error. Closing a finished stream is a no-op.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		r.finish(StateCancelled, llmerrors.New(llmerrors.KindStream, "stream cancelled"))
		close(r.closed)
		r.cancel()
		// Drain so the worker is never stuck publishing.
		go func() {
			for range r.chunks {
			}
		}()
	})
	return nil
}

func cancelledErr(ctx context.Context) error {
	return llmerrors.Wrap(llmerrors.KindStream, "stream cancelled", ctx.Err())
}

// Join exhausts the stream and folds it into a non-streaming Response.
// Content text concatenates into a single assistant text part; when
// reasoning chunks were present the reasoning block precedes the content
// block. Tool-call fragments are accumulated per id and decoded. Meta
// usage merges into partial.
func Join(r *Response, partial *types.Response) (*types.Response, error) {
	var (
		content   []byte
		reasoning []byte
		toolCalls = jsonutil.NewToolCallAccumulator()
	)

	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch chunk.Type {
		case types.ChunkTypeContent:
			content = append(content, chunk.Text...)
		case types.ChunkTypeReasoning:
			reasoning = append(reasoning, chunk.Text...)
		case types.ChunkTypeToolCall:
			toolCalls.Feed(*chunk)
		}
	}

	var parts []types.ContentPart
	if len(reasoning) > 0 {
		parts = append(parts, types.ReasoningContent{Text: string(reasoning)})
	}
	if len(content) > 0 {
		parts = append(parts, types.TextContent{Text: string(content)})
	}
	for _, call := range toolCalls.Calls() {
		parts = append(parts, call)
	}

	meta := r.Meta()
	if partial == nil {
		partial = &types.Response{Model: r.Model.Model}
	}
	partial.Message = types.Message{Role: types.RoleAssistant, Content: parts}
	partial.Context = partial.Context.Append(partial.Message)
	partial.Stream = false
	partial.Usage = partial.Usage.Add(meta.Usage).Normalize()
	if meta.FinishReason != "" {
		partial.FinishReason = meta.FinishReason
	}
	return partial, nil
}
