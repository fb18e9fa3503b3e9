// Package sqlite provides a SQLite-backed document store driver.
//
// Each record is persisted as one whole JSON document in a single table, the
// SQL analogue of the jsonfile driver's whole-document overwrite: a mutation
// re-serializes the full record and replaces the row in one statement.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/store"
)

// Driver implements store.Driver using SQLite.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDriver opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func NewDriver(dbPath string, logger *zap.Logger) (*Driver, error) {
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS dreams (
			id  INTEGER PRIMARY KEY,
			doc TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating dreams table: %w", err)
	}

	logger.Info("sqlite dream store opened", zap.String("path", dbPath))

	return &Driver{db: db, logger: logger}, nil
}

// Create allocates the next id inside a transaction and inserts the record,
// so a failed write leaves nothing visible to subsequent reads.
func (d *Driver) Create(ctx context.Context, title, date, entry string) (*dream.Record, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", store.ErrPersistence, err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM dreams`).Scan(&count); err != nil {
		return nil, fmt.Errorf("%w: counting records: %v", store.ErrPersistence, err)
	}

	rec := &dream.Record{
		ID:    store.NextID(count),
		Title: title,
		Date:  date,
		Entry: entry,
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling record: %v", store.ErrPersistence, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dreams(id, doc) VALUES (?, ?)`, rec.ID, string(doc),
	); err != nil {
		return nil, fmt.Errorf("%w: inserting record: %v", store.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing: %v", store.ErrPersistence, err)
	}

	return rec, nil
}

// GetAll returns all records in creation order. A failed read degrades to an
// empty sequence with a logged fault.
func (d *Driver) GetAll(ctx context.Context) ([]*dream.Record, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT doc FROM dreams ORDER BY id`)
	if err != nil {
		d.logger.Error("reading dreams table, returning empty", zap.Error(err))
		return nil, nil
	}
	defer rows.Close()

	var out []*dream.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			d.logger.Error("scanning dream row, returning empty", zap.Error(err))
			return nil, nil
		}

		rec := &dream.Record{}
		if err := json.Unmarshal([]byte(doc), rec); err != nil {
			d.logger.Error("parsing dream document, skipping row", zap.Error(err))
			continue
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		d.logger.Error("iterating dreams table, returning empty", zap.Error(err))
		return nil, nil
	}

	return out, nil
}

// GetByID retrieves a record by id.
func (d *Driver) GetByID(ctx context.Context, id int64) (*dream.Record, error) {
	var doc string
	err := d.db.QueryRowContext(ctx, `SELECT doc FROM dreams WHERE id = ?`, id).Scan(&doc)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.NotFoundError{ID: id}
	case err != nil:
		return nil, fmt.Errorf("%w: reading record %d: %v", store.ErrPersistence, id, err)
	}

	rec := &dream.Record{}
	if err := json.Unmarshal([]byte(doc), rec); err != nil {
		return nil, fmt.Errorf("%w: parsing record %d: %v", store.ErrPersistence, id, err)
	}

	return rec, nil
}

// UpdateAnalysisAndImage overwrites both enrichment facets and replaces the
// stored document.
func (d *Driver) UpdateAnalysisAndImage(ctx context.Context, id int64, analysis string, image *dream.Image) (*dream.Record, error) {
	return d.mutate(ctx, id, func(rec *dream.Record) {
		rec.Analysis = analysis
		rec.Image = image
	})
}

// SetEmbedding overwrites the record's embedding and replaces the stored
// document.
func (d *Driver) SetEmbedding(ctx context.Context, id int64, embedding []float32) (*dream.Record, error) {
	return d.mutate(ctx, id, func(rec *dream.Record) {
		rec.Embedding = embedding
	})
}

// mutate applies fn to the stored document for id and writes it back in a
// transaction. Last-writer-wins for racing callers, same as the file driver.
func (d *Driver) mutate(ctx context.Context, id int64, fn func(*dream.Record)) (*dream.Record, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", store.ErrPersistence, err)
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM dreams WHERE id = ?`, id).Scan(&doc)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.NotFoundError{ID: id}
	case err != nil:
		return nil, fmt.Errorf("%w: reading record %d: %v", store.ErrPersistence, id, err)
	}

	rec := &dream.Record{}
	if err := json.Unmarshal([]byte(doc), rec); err != nil {
		return nil, fmt.Errorf("%w: parsing record %d: %v", store.ErrPersistence, id, err)
	}

	fn(rec)

	updated, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling record %d: %v", store.ErrPersistence, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE dreams SET doc = ? WHERE id = ?`, string(updated), id,
	); err != nil {
		return nil, fmt.Errorf("%w: updating record %d: %v", store.ErrPersistence, id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing: %v", store.ErrPersistence, err)
	}

	return rec, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ store.Driver = (*Driver)(nil)
