// Package inmemory provides an in-memory document store driver, used as the
// default for local development and throughout the tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/store"
)

// Driver implements store.Driver using an in-process slice.
type Driver struct {
	mu      sync.RWMutex
	records []*dream.Record
}

// NewDriver creates a new empty in-memory store.
func NewDriver() *Driver {
	return &Driver{}
}

// Create allocates the next id and appends the record.
func (d *Driver) Create(_ context.Context, title, date, entry string) (*dream.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := &dream.Record{
		ID:    store.NextID(len(d.records)),
		Title: title,
		Date:  date,
		Entry: entry,
	}
	d.records = append(d.records, rec)

	return rec.Clone(), nil
}

// GetAll returns a snapshot of all records in creation order.
func (d *Driver) GetAll(_ context.Context) ([]*dream.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*dream.Record, len(d.records))
	for i, rec := range d.records {
		out[i] = rec.Clone()
	}

	return out, nil
}

// GetByID retrieves a record by id.
func (d *Driver) GetByID(_ context.Context, id int64) (*dream.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec := d.findLocked(id)
	if rec == nil {
		return nil, store.NotFoundError{ID: id}
	}

	return rec.Clone(), nil
}

// UpdateAnalysisAndImage overwrites both enrichment facets.
func (d *Driver) UpdateAnalysisAndImage(_ context.Context, id int64, analysis string, image *dream.Image) (*dream.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.findLocked(id)
	if rec == nil {
		return nil, store.NotFoundError{ID: id}
	}

	rec.Analysis = analysis
	rec.Image = image

	return rec.Clone(), nil
}

// SetEmbedding overwrites the record's embedding.
func (d *Driver) SetEmbedding(_ context.Context, id int64, embedding []float32) (*dream.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.findLocked(id)
	if rec == nil {
		return nil, store.NotFoundError{ID: id}
	}

	rec.Embedding = embedding

	return rec.Clone(), nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) findLocked(id int64) *dream.Record {
	for _, rec := range d.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

var _ store.Driver = (*Driver)(nil)
