package ai

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/digitallysavvy/go-llm/pkg/internal/jsonutil"
	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
	"github.com/digitallysavvy/go-llm/pkg/registry"
	"github.com/digitallysavvy/go-llm/pkg/schema"
	"github.com/digitallysavvy/go-llm/pkg/stream"
)

// StructuredOutputToolName is the synthesized tool used when a provider
// has no native JSON-schema response mode.
const StructuredOutputToolName = "structured_output"

// nativeJSONSchemaSupport is implemented by adapters that can report
// response_format json_schema support per model.
type nativeJSONSchemaSupport interface {
	SupportsNativeJSONSchema(model types.Model) bool
}

// GenerateObject performs schema-constrained generation and returns the
// Response with Object populated. Providers advertising native JSON-schema
// output use response_format; everything else goes through a forced tool
// call on a synthesized structured_output tool.
func GenerateObject(ctx context.Context, req Request, schemaDoc map[string]any) (*types.Response, error) {
	validator, err := schema.Compile(schemaDoc)
	if err != nil {
		return nil, err
	}

	native, err := shapeForObject(&req, schemaDoc)
	if err != nil {
		return nil, err
	}

	response, err := GenerateText(ctx, req)
	if err != nil {
		return nil, err
	}

	object, err := extractObject(response, native)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(object); err != nil {
		return nil, err
	}
	response.Object = object
	return response, nil
}

// MustGenerateObject is the raising variant of GenerateObject.
func MustGenerateObject(ctx context.Context, req Request, schemaDoc map[string]any) *types.Response {
	response, err := GenerateObject(ctx, req, schemaDoc)
	if err != nil {
		panic(err)
	}
	return response
}

// shapeForObject mutates the request options for the chosen strategy and
// reports whether the native path was selected.
func shapeForObject(req *Request, schemaDoc map[string]any) (bool, error) {
	reg := req.Registry
	if reg == nil {
		reg = registry.Default
	}
	model, err := reg.ResolveModel(req.Model)
	if err != nil {
		return false, err
	}
	adapter, err := reg.Get(model.Provider)
	if err != nil {
		return false, err
	}

	if req.Options == nil {
		req.Options = &provider.CallOptions{}
	}

	if support, ok := adapter.(nativeJSONSchemaSupport); ok && support.SupportsNativeJSONSchema(model) {
		req.Options.ResponseFormat = &provider.ResponseFormat{
			Type:   "json_schema",
			Name:   StructuredOutputToolName,
			Schema: schemaDoc,
		}
		return true, nil
	}

	req.Options.Tools = append(req.Options.Tools, types.Tool{
		Name:        StructuredOutputToolName,
		Description: "Produce the structured output object.",
		RawSchema:   schemaDoc,
	})
	req.Options.ToolChoice = &types.ToolChoice{
		Type:     types.ToolChoiceTool,
		ToolName: StructuredOutputToolName,
	}
	return false, nil
}

// extractObject pulls the generated object out of a finished response:
// the assistant text on the native path, the forced tool call's arguments
// on the fallback path. Decode failures report the partial text.
func extractObject(response *types.Response, native bool) (map[string]any, error) {
	if native {
		text := strings.TrimSpace(response.Text())
		var object map[string]any
		if err := json.Unmarshal([]byte(text), &object); err != nil {
			decodeErr := llmerrors.Wrap(llmerrors.KindAPIResponse, "structured output is not valid JSON", err)
			decodeErr.ResponseBody = []byte(text)
			return nil, decodeErr
		}
		return object, nil
	}

	for _, call := range response.ToolCalls() {
		if call.Name == StructuredOutputToolName {
			return call.Arguments, nil
		}
	}
	return nil, llmerrors.New(llmerrors.KindAPIResponse,
		"model response contains no structured_output tool call")
}

// ObjectStream is a streaming structured-output response. It forwards the
// underlying chunk sequence; Object assembles and validates the final
// object once the stream terminates.
type ObjectStream struct {
	*stream.Response

	validator *schema.Validator
	native    bool

	content strings.Builder
	args    *jsonutil.ToolCallAccumulator
	object  map[string]any
}

// MustStreamObject is the raising variant of StreamObject.
func MustStreamObject(ctx context.Context, req Request, schemaDoc map[string]any) *ObjectStream {
	streamResp, err := StreamObject(ctx, req, schemaDoc)
	if err != nil {
		panic(err)
	}
	return streamResp
}

// StreamObject starts schema-constrained streaming generation.
func StreamObject(ctx context.Context, req Request, schemaDoc map[string]any) (*ObjectStream, error) {
	validator, err := schema.Compile(schemaDoc)
	if err != nil {
		return nil, err
	}
	native, err := shapeForObject(&req, schemaDoc)
	if err != nil {
		return nil, err
	}

	streamResp, err := StreamText(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ObjectStream{
		Response:  streamResp,
		validator: validator,
		native:    native,
		args:      jsonutil.NewToolCallAccumulator(),
	}, nil
}

// Next forwards the next chunk while accumulating the fragments the final
// object is assembled from.
func (s *ObjectStream) Next() (*types.StreamChunk, error) {
	chunk, err := s.Response.Next()
	if err != nil {
		return nil, err
	}
	switch chunk.Type {
	case types.ChunkTypeContent:
		s.content.WriteString(chunk.Text)
	case types.ChunkTypeToolCall:
		s.args.Feed(*chunk)
	}
	return chunk, nil
}

// Object exhausts any remaining chunks, assembles the object and
// validates it against the schema.
func (s *ObjectStream) Object() (map[string]any, error) {
	if s.object != nil {
		return s.object, nil
	}
	for {
		_, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	var object map[string]any
	if s.native {
		text := strings.TrimSpace(s.content.String())
		if err := json.Unmarshal([]byte(text), &object); err != nil {
			decodeErr := llmerrors.Wrap(llmerrors.KindAPIResponse, "structured output is not valid JSON", err)
			decodeErr.ResponseBody = []byte(text)
			return nil, decodeErr
		}
	} else {
		for _, call := range s.args.Calls() {
			if call.Name == StructuredOutputToolName || call.Name == "" {
				object = call.Arguments
				break
			}
		}
		if object == nil {
			return nil, llmerrors.New(llmerrors.KindAPIResponse,
				"stream contains no structured_output tool call")
		}
	}

	if err := s.validator.Validate(object); err != nil {
		return nil, err
	}
	s.object = object
	return object, nil
}
