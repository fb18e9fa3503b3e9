// Package jsonfile provides the file-backed document store driver.
//
// The whole record set is serialized as a single JSON array. Every mutation
// rewrites the file through a temp file plus atomic rename, so a reader of the
// file observes either the previous or the next snapshot, never a torn one.
// Mutations are serialized through one in-process mutex; there is no
// cross-process coordination.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/store"
)

// Driver implements store.Driver on a single JSON file with an in-memory
// mirror of the record set.
type Driver struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	records []*dream.Record
}

// Open loads the record set from path. A missing file means a first run; an
// unreadable or unparseable file degrades to an empty set with a logged
// fault, so absent data never takes the service down.
func Open(path string, logger *zap.Logger) (*Driver, error) {
	if path == "" {
		return nil, errors.New("dreams file path is required")
	}

	d := &Driver{
		path:   path,
		logger: logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run, nothing to load.
	case err != nil:
		logger.Error("reading dreams file, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
	default:
		if err := json.Unmarshal(data, &d.records); err != nil {
			logger.Error("parsing dreams file, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
			d.records = nil
		}
	}

	logger.Info("dream store opened",
		zap.String("path", path),
		zap.Int("records", len(d.records)),
	)

	return d, nil
}

// Create allocates the next id, appends the record and persists the new
// snapshot. On a failed write the record is rolled back out of the in-memory
// mirror so it is never visible to subsequent reads.
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

	if err := d.flushLocked(); err != nil {
		d.records = d.records[:len(d.records)-1]
		return nil, fmt.Errorf("%w: writing dreams file: %v", store.ErrPersistence, err)
	}

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

// UpdateAnalysisAndImage overwrites both enrichment facets and persists.
// Last-writer-wins under concurrent updates to the same id.
func (d *Driver) UpdateAnalysisAndImage(_ context.Context, id int64, analysis string, image *dream.Image) (*dream.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.findLocked(id)
	if rec == nil {
		return nil, store.NotFoundError{ID: id}
	}

	prevAnalysis, prevImage := rec.Analysis, rec.Image
	rec.Analysis = analysis
	rec.Image = image

	if err := d.flushLocked(); err != nil {
		rec.Analysis = prevAnalysis
		rec.Image = prevImage
		return nil, fmt.Errorf("%w: writing dreams file: %v", store.ErrPersistence, err)
	}

	return rec.Clone(), nil
}

// SetEmbedding overwrites the record's embedding and persists.
func (d *Driver) SetEmbedding(_ context.Context, id int64, embedding []float32) (*dream.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.findLocked(id)
	if rec == nil {
		return nil, store.NotFoundError{ID: id}
	}

	prev := rec.Embedding
	rec.Embedding = embedding

	if err := d.flushLocked(); err != nil {
		rec.Embedding = prev
		return nil, fmt.Errorf("%w: writing dreams file: %v", store.ErrPersistence, err)
	}

	return rec.Clone(), nil
}

// Close is a no-op; every mutation already flushed synchronously.
func (d *Driver) Close() error {
	return nil
}

// findLocked returns the live record for id, or nil. Callers hold d.mu.
func (d *Driver) findLocked(id int64) *dream.Record {
	for _, rec := range d.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

// flushLocked serializes the whole record set and atomically replaces the
// file. Write-to-temp plus rename keeps a crash mid-write from losing the
// previous snapshot. Callers hold d.mu.
func (d *Driver) flushLocked() error {
	data, err := json.MarshalIndent(d.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing dreams file: %w", err)
	}

	return nil
}

var _ store.Driver = (*Driver)(nil)
