// Package ai is the public facade of the SDK: GenerateText, StreamText,
// GenerateObject, StreamObject, Embed and their raising variants. Every
// operation takes a model spec string ("provider:model"), a prompt or a
// full Context, and call options; providers are resolved through the
// registry and credentials through the resolution chain.
package ai

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/digitallysavvy/go-llm/pkg/credentials"
	"github.com/digitallysavvy/go-llm/pkg/internal/httpclient"
	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/registry"
	"github.com/digitallysavvy/go-llm/pkg/telemetry"
)

// Request is the common input of the text and object operations.
type Request struct {
	// Model is the "provider:model" spec.
	Model string

	// Prompt is a plain user prompt. Mutually exclusive with Context.
	Prompt string

	// Context is a full conversation. Mutually exclusive with Prompt.
	Context types.Context

	// Options are the call options; nil means defaults.
	Options *provider.CallOptions

	// Telemetry enables tracing for this call.
	Telemetry *telemetry.Settings

	// Registry overrides the default provider registry.
	Registry *registry.Registry

	// RateLimit throttles this call's outgoing requests client-side.
	// Callers share one limiter across calls to bound their aggregate
	// request rate. Ignored when HTTPClient is set.
	RateLimit *rate.Limiter

	// HTTPClient overrides the shared transport, mainly for tests.
	HTTPClient *httpclient.Client
}

// call is one resolved invocation: everything the transport needs.
type call struct {
	model   types.Model
	adapter provider.Adapter
	context types.Context
	opts    *provider.CallOptions
	client  *httpclient.Client

	warnings []string
}

var defaultClient = httpclient.New(httpclient.Config{})

// resolve runs the shared facade steps: model parsing and registry
// lookup, option validation, option translation, credential resolution
// and request building with credential decoration.
func resolve(req *Request, op provider.Operation) (*call, *provider.HTTPRequest, error) {
	reg := req.Registry
	if reg == nil {
		reg = registry.Default
	}

	model, err := reg.ResolveModel(req.Model)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := reg.Get(model.Provider)
	if err != nil {
		return nil, nil, err
	}

	convCtx := req.Context
	if convCtx == nil {
		if req.Prompt == "" {
			return nil, nil, llmerrors.New(llmerrors.KindInvalidMessage, "prompt or context is required")
		}
		convCtx = types.NewContext(types.UserMessage(req.Prompt))
	} else if req.Prompt != "" {
		return nil, nil, llmerrors.New(llmerrors.KindInvalidParameter, "prompt and context are mutually exclusive")
	}
	if err := convCtx.Validate(); err != nil {
		return nil, nil, llmerrors.Wrap(llmerrors.KindInvalidMessage, "invalid context", err)
	}

	opts := req.Options.Clone()
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	// Model-level defaults apply only where the caller left options
	// unset; an explicit nil is never overridden.
	if opts.Temperature == nil && model.Temperature != nil {
		opts.Temperature = model.Temperature
	}
	if opts.MaxTokens == nil && model.MaxTokens != nil {
		opts.MaxTokens = model.MaxTokens
	}

	params, warnings, err := adapter.TranslateOptions(op, model, opts)
	if err != nil {
		return nil, nil, err
	}
	for _, warning := range warnings {
		slog.Debug("option translated", "provider", model.Provider, "warning", warning)
	}

	httpReq, err := adapter.EncodeRequest(op, model, convCtx, opts, params)
	if err != nil {
		return nil, nil, err
	}
	if err := decorate(adapter, reg, model.Provider, opts, httpReq); err != nil {
		return nil, nil, err
	}

	client := req.HTTPClient
	if client == nil {
		if req.RateLimit != nil {
			client = httpclient.New(httpclient.Config{RateLimit: req.RateLimit})
		} else {
			client = defaultClient
		}
	}

	return &call{
		model:    model,
		adapter:  adapter,
		context:  convCtx,
		opts:     opts,
		client:   client,
		warnings: warnings,
	}, httpReq, nil
}

// decorate attaches the resolved credential to the request (header or
// query parameter) and runs request signing for providers that need it.
func decorate(adapter provider.Adapter, reg *registry.Registry, providerID string, opts *provider.CallOptions, req *provider.HTTPRequest) error {
	placement := adapter.Credential()
	if placement.Header != "" || placement.QueryParam != "" {
		key, _, err := credentials.Resolve(providerID, opts.APIKey, reg.EnvVarName)
		if err != nil {
			return err
		}
		switch {
		case placement.Header != "":
			req.Headers[placement.Header] = placement.Prefix + key
		case placement.QueryParam != "":
			sep := "?"
			for _, c := range req.URL {
				if c == '?' {
					sep = "&"
					break
				}
			}
			req.URL += sep + placement.QueryParam + "=" + key
		}
	}

	if signer, ok := adapter.(provider.RequestSigner); ok {
		if err := signer.SignRequest(req); err != nil {
			return err
		}
	}
	return nil
}

// span starts a telemetry span for an operation, returning a completion
// callback.
func span(ctx context.Context, settings *telemetry.Settings, operation, modelSpec string) (context.Context, func(usage *types.Usage, err error)) {
	tracer := settings.TracerOrNoop()
	name := operation
	if settings != nil && settings.FunctionID != "" {
		name += "." + settings.FunctionID
	}
	ctx, sp := tracer.Start(ctx, name)
	sp.SetAttributes(
		attribute.String("llm.operation", operation),
		attribute.String("llm.model", modelSpec),
		attribute.String("llm.call_id", uuid.NewString()),
	)
	if settings != nil {
		for key, value := range settings.Metadata {
			sp.SetAttributes(attribute.KeyValue{
				Key:   attribute.Key("llm.telemetry.metadata." + key),
				Value: value,
			})
		}
	}
	return ctx, func(usage *types.Usage, err error) {
		if usage != nil {
			sp.SetAttributes(
				attribute.Int64("llm.usage.input_tokens", usage.InputTokens),
				attribute.Int64("llm.usage.output_tokens", usage.OutputTokens),
			)
		}
		if err != nil {
			sp.RecordError(err)
		}
		sp.End()
	}
}
