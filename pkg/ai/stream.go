package ai

import (
	"context"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/stream"
)

// StreamText starts a streaming text generation. The returned stream
// owns the HTTP connection and a worker task; exhaust it or Close it.
func StreamText(ctx context.Context, req Request) (*stream.Response, error) {
	if req.Options == nil {
		req.Options = &provider.CallOptions{}
	}
	req.Options.Stream = true

	ctx, done := span(ctx, req.Telemetry, "ai.stream_text", req.Model)

	resolved, httpReq, err := resolve(&req, provider.OperationChat)
	if err != nil {
		done(nil, err)
		return nil, err
	}

	streamResp, err := stream.Open(ctx, resolved.client, resolved.adapter, httpReq, resolved.model, resolved.opts.ReceiveTimeout)
	if err != nil {
		done(nil, err)
		return nil, err
	}

	// The span closes with the stream's terminal metadata.
	go func() {
		meta := streamResp.Meta()
		done(&meta.Usage, meta.Err)
	}()
	return streamResp, nil
}

// MustStreamText is the raising variant of StreamText.
func MustStreamText(ctx context.Context, req Request) *stream.Response {
	resp, err := StreamText(ctx, req)
	if err != nil {
		panic(err)
	}
	return resp
}

// JoinText exhausts a text stream into a non-streaming Response, with the
// originating context appended. Convenience over stream.Join.
func JoinText(req Request, streamResp *stream.Response) (*types.Response, error) {
	partial := &types.Response{
		Model:   streamResp.Model.Model,
		Context: req.Context,
	}
	return stream.Join(streamResp, partial)
}
