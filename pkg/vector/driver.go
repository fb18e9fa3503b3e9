// Package vector provides the adapter interface for the external vector index.
package vector

import "context"

// Point is one index entry: the record's embedding plus the serialized record
// payload, keyed by the record's integer id. The index and the document store
// are eventually consistent per id; the document store wins on conflict.
type Point struct {
	// ID is the dream record identifier.
	ID int64

	// Vector is the embedding derived from the record's entry text.
	Vector []float32

	// Payload is the serialized record at the time of the upsert.
	Payload []byte
}

// Result is a similarity hit (higher score = more similar).
type Result struct {
	Point

	Score float32
}

// Driver wraps the external vector index's upsert/get/query operations.
// Implementations create the backing collection lazily on first use;
// index-not-found is never fatal.
type Driver interface {
	// Upsert inserts or overwrites points keyed by record id. Upserting the
	// same point twice is a no-op, which is what makes re-synchronization and
	// reconciliation safe to repeat.
	Upsert(ctx context.Context, points []Point) error

	// Get retrieves points by id. Ids with no index entry are simply absent
	// from the result, not an error.
	Get(ctx context.Context, ids []int64, withVectors, withPayload bool) ([]Point, error)

	// Query returns the topK points most similar to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]Result, error)

	// Close releases any resources held by the driver.
	Close() error
}
