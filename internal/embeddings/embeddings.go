// Package embeddings turns entity summaries into vectors for the
// semantic search stage. Vectors are computed from a compact text
// built out of the entity name, description, keywords and qualified
// name rather than raw source, so semantically similar entities land
// close together even when their code differs.
package embeddings

import "context"

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelVersion is stored beside each vector; a model switch makes
	// stale vectors detectable.
	ModelVersion() string

	// Dimensions returns the embedding vector dimension.
	Dimensions() int

	// Close releases resources held by the embedder.
	Close() error
}
