// Package embedding provides text embedders (ONNX, OpenAI, deterministic mock) and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ModelNamer is implemented by embedders that can report their model name.
type ModelNamer interface {
	Model() string
}

// ModelName returns the embedder's model name, or "" when it does not report one.
func ModelName(e Embedder) string {
	if e == nil {
		return ""
	}
	if n, ok := e.(ModelNamer); ok {
		return n.Model()
	}
	return ""
}

// embedEach calls embed for each text in order and stops at the first failure.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
