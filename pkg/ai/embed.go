package ai

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/digitallysavvy/go-llm/pkg/internal/httpclient"
	"github.com/digitallysavvy/go-llm/pkg/internal/retry"
	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

// Embed generates the embedding vector for a single input.
func Embed(ctx context.Context, req Request, input string) ([]float64, error) {
	result, err := EmbedMany(ctx, req, []string{input})
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) == 0 {
		return nil, llmerrors.New(llmerrors.KindAPIResponse, "provider returned no embeddings")
	}
	return result.Embeddings[0], nil
}

// EmbedMany generates embeddings for a batch of inputs, preserving order.
func EmbedMany(ctx context.Context, req Request, inputs []string) (*types.EmbeddingsResult, error) {
	if len(inputs) == 0 {
		return nil, llmerrors.New(llmerrors.KindInvalidParameter, "inputs cannot be empty")
	}

	ctx, done := span(ctx, req.Telemetry, "ai.embed", req.Model)

	messages := make(types.Context, 0, len(inputs))
	for _, input := range inputs {
		messages = append(messages, types.UserMessage(input))
	}
	req.Context = messages
	req.Prompt = ""

	resolved, httpReq, err := resolve(&req, provider.OperationEmbedding)
	if err != nil {
		done(nil, err)
		return nil, err
	}

	embedder, ok := resolved.adapter.(provider.EmbeddingAdapter)
	if !ok {
		err := llmerrors.Newf(llmerrors.KindInvalidParameter,
			"provider %q does not support embeddings", resolved.model.Provider)
		done(nil, err)
		return nil, err
	}

	transportReq := &httpclient.Request{
		Method:  httpReq.Method,
		URL:     httpReq.URL,
		Headers: httpReq.Headers,
		Body:    httpReq.Body,
		Timeout: resolved.opts.Timeout,
	}
	var raw *httpclient.Response
	err = retry.Do(ctx, retry.Config{MaxRetries: resolved.model.MaxRetries}, func(ctx context.Context) error {
		var attemptErr error
		raw, attemptErr = resolved.client.Do(ctx, transportReq)
		return attemptErr
	})
	if err != nil {
		done(nil, err)
		return nil, err
	}

	result, err := embedder.DecodeEmbeddings(raw.Body, resolved.model)
	if err != nil {
		done(nil, err)
		return nil, err
	}
	done(&result.Usage, nil)
	return result, nil
}

// MustEmbed is the raising variant of Embed.
func MustEmbed(ctx context.Context, req Request, input string) []float64 {
	embedding, err := Embed(ctx, req, input)
	if err != nil {
		panic(err)
	}
	return embedding
}

// MustEmbedMany is the raising variant of EmbedMany.
func MustEmbedMany(ctx context.Context, req Request, inputs []string) *types.EmbeddingsResult {
	result, err := EmbedMany(ctx, req, inputs)
	if err != nil {
		panic(err)
	}
	return result
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// in [-1, 1]. Empty or zero-magnitude inputs yield 0; mismatched lengths
// are an error.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, llmerrors.Newf(llmerrors.KindInvalidParameter,
			"vector lengths differ: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return floats.Dot(a, b) / (normA * normB), nil
}

// FindSimilar ranks candidate vectors by cosine similarity to the query
// and returns the candidate indices in descending similarity order.
func FindSimilar(query []float64, candidates [][]float64, topK int) ([]int, error) {
	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for i, candidate := range candidates {
		score, err := CosineSimilarity(query, candidate)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{index: i, score: score})
	}
	// Insertion sort; candidate lists are small.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if topK <= 0 || topK > len(ranked) {
		topK = len(ranked)
	}
	indices := make([]int, topK)
	for i := 0; i < topK; i++ {
		indices[i] = ranked[i].index
	}
	return indices, nil
}
