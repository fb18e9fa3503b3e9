// Package store
package store

import (
	"context"

	"github.com/lucidjournal/lucidd/pkg/dream"
)

// Driver defines the interface for persisting and retrieving dream records in
// a storage backend. The store is the source of truth for every field except
// the vector index's own copy of the embedding.
type Driver interface {
	// Create allocates an id, persists a record with absent analysis/image and
	// returns it. On a failed durable write the record must not be visible to
	// subsequent reads.
	Create(ctx context.Context, title, date, entry string) (*dream.Record, error)

	// GetAll returns all records in creation order. An unreadable underlying
	// store degrades to an empty sequence with a logged fault rather than an
	// error the caller has to recover from.
	GetAll(ctx context.Context) ([]*dream.Record, error)

	// GetByID retrieves a record by id. A missing id is a NotFoundError,
	// distinct from a storage fault.
	GetByID(ctx context.Context, id int64) (*dream.Record, error)

	// UpdateAnalysisAndImage overwrites both enrichment facets and persists.
	// An empty analysis or nil image sets that facet absent; callers always
	// pass both explicitly. Concurrent updates to the same id are
	// last-writer-wins, an accepted trade-off for a single-user journal.
	UpdateAnalysisAndImage(ctx context.Context, id int64, analysis string, image *dream.Image) (*dream.Record, error)

	// SetEmbedding overwrites the record's embedding and persists. Called by
	// the embedding synchronizer before the index upsert so the store always
	// reflects the newer entry/embedding pairing.
	SetEmbedding(ctx context.Context, id int64, embedding []float32) (*dream.Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
