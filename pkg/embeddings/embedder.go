// Package embeddings
package embeddings

import "context"

// Embedder converts dream entry text into vector embeddings. The embedding
// of a record's entry text is what keeps the document store and the vector
// index in sync, so a failed Embed must leave both untouched.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
