package ai

import (
	"context"

	"github.com/digitallysavvy/go-llm/pkg/internal/httpclient"
	"github.com/digitallysavvy/go-llm/pkg/internal/retry"
	"github.com/digitallysavvy/go-llm/pkg/provider"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

// GenerateText performs a non-streaming text generation. The returned
// Response carries the assistant message, the input context with that
// message appended, usage, finish reason and any translation warnings.
func GenerateText(ctx context.Context, req Request) (*types.Response, error) {
	ctx, done := span(ctx, req.Telemetry, "ai.generate_text", req.Model)

	resolved, httpReq, err := resolve(&req, provider.OperationChat)
	if err != nil {
		done(nil, err)
		return nil, err
	}

	response, err := doGenerate(ctx, resolved, httpReq)
	if err != nil {
		done(nil, err)
		return nil, err
	}
	done(&response.Usage, nil)
	return response, nil
}

// MustGenerateText is the raising variant of GenerateText.
func MustGenerateText(ctx context.Context, req Request) *types.Response {
	response, err := GenerateText(ctx, req)
	if err != nil {
		panic(err)
	}
	return response
}

// doGenerate runs the transport with retries and decodes the body.
// Retries apply only here: the request is idempotent and no response
// bytes have been consumed when an attempt fails.
func doGenerate(ctx context.Context, resolved *call, httpReq *provider.HTTPRequest) (*types.Response, error) {
	transportReq := &httpclient.Request{
		Method:  httpReq.Method,
		URL:     httpReq.URL,
		Headers: httpReq.Headers,
		Body:    httpReq.Body,
		Timeout: resolved.opts.Timeout,
	}

	var raw *httpclient.Response
	err := retry.Do(ctx, retry.Config{MaxRetries: resolved.model.MaxRetries}, func(ctx context.Context) error {
		var attemptErr error
		raw, attemptErr = resolved.client.Do(ctx, transportReq)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	response, err := resolved.adapter.DecodeResponse(raw.Body, resolved.model)
	if err != nil {
		return nil, err
	}
	response.Context = resolved.context.Append(response.Message)
	response.Warnings = resolved.warnings
	return response, nil
}
