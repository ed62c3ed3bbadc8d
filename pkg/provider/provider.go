// Package provider defines the adapter contract every provider
// implementation satisfies, plus the shared call-option schema. Adapters
// translate between the canonical data model in types and their wire
// formats; they never surface wire types to callers.
package provider

import (
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/providerutils/streaming"
)

// Operation names a provider API surface.
type Operation string

const (
	// OperationChat is text generation over a conversation.
	OperationChat Operation = "chat"
	// OperationEmbedding is vector embedding of input text.
	OperationEmbedding Operation = "embedding"
)

// HTTPRequest is a provider-native request ready for transport. Adapters
// emit it from EncodeRequest; credentials are attached afterwards by the
// decoration step so builders never see raw keys.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte

	// Stream marks a request whose response body is a framed stream.
	Stream bool

	// Framing selects the frame grammar for streaming responses.
	Framing streaming.Format
}

// CredentialPlacement says where the resolved API key goes on the request.
type CredentialPlacement struct {
	// Header is the header name to set ("Authorization", "x-api-key").
	Header string

	// Prefix is prepended to the key ("Bearer ").
	Prefix string

	// QueryParam places the key in the URL query instead of a header
	// (Gemini's "key" parameter).
	QueryParam string
}

// Adapter is the provider contract: encode canonical context into a
// provider-native request, decode provider-native responses and stream
// events back into canonical shapes.
type Adapter interface {
	// ProviderID returns the registry id ("openai", "anthropic", ...).
	ProviderID() string

	// TranslateOptions reshapes caller options into this provider's wire
	// parameter map for the operation. Returned warnings are surfaced at
	// the boundary; they never fail the call. Hard violations (mutually
	// exclusive pairs) error with kind invalid_parameter.
	TranslateOptions(op Operation, model types.Model, opts *CallOptions) (map[string]any, []string, error)

	// EncodeRequest builds the provider HTTP request for the operation
	// from the validated context and the translated parameter map.
	EncodeRequest(op Operation, model types.Model, ctx types.Context, opts *CallOptions, params map[string]any) (*HTTPRequest, error)

	// DecodeResponse maps a non-streaming response body to the canonical
	// Response.
	DecodeResponse(body []byte, model types.Model) (*types.Response, error)

	// DecodeStreamEvent maps one framed event to zero or more canonical
	// chunks. The "[DONE]" sentinel is handled by the coordinator and
	// never reaches the adapter.
	DecodeStreamEvent(event streaming.Event, model types.Model) ([]types.StreamChunk, error)

	// Credential describes how the resolved API key is attached.
	Credential() CredentialPlacement
}

// EnvKeyProvider is implemented by adapters that pin a non-conventional
// API-key environment variable.
type EnvKeyProvider interface {
	DefaultEnvKey() string
}

// RequestSigner is implemented by adapters whose providers authenticate by
// signing the whole request (AWS SigV4) rather than by API-key header.
// The facade invokes it after credential decoration, once every header is
// final.
type RequestSigner interface {
	SignRequest(req *HTTPRequest) error
}

// EmbeddingAdapter is implemented by adapters whose provider exposes an
// embeddings endpoint.
type EmbeddingAdapter interface {
	Adapter

	// DecodeEmbeddings maps an embeddings response body to vectors.
	DecodeEmbeddings(body []byte, model types.Model) (*types.EmbeddingsResult, error)
}
