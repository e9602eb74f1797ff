// Package openai implements the memory.Embedder interface using the OpenAI
// embeddings API.
package openai

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder converts text into vectors with an OpenAI embedding model.
type Embedder struct {
	client oai.Client
	model  string
}

// NewEmbedder creates an Embedder. An empty model selects
// text-embedding-3-small. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable. A non-empty baseURL points the
// client at an OpenAI-compatible endpoint.
func NewEmbedder(apiKey, model, baseURL string) *Embedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Embedder{
		client: oai.NewClient(opts...),
		model:  model,
	}
}

// Embed converts a text string into a vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: e.model,
		Input: oai.EmbeddingNewParamsInputUnion{
			OfString: oai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding returned no data")
	}

	raw := resp.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}
