// Package journal orchestrates the dream record lifecycle: durable
// persistence, embedding synchronization with the vector index, and
// AI enrichment.
//
// The document store is the source of truth. The index is kept eventually
// consistent per record id; on any disagreement the store's serialization
// wins and is re-upserted.
package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/embeddings"
	"github.com/lucidjournal/lucidd/pkg/genai"
	"github.com/lucidjournal/lucidd/pkg/store"
	"github.com/lucidjournal/lucidd/pkg/vector"
)

// Journal coordinates the document store, the vector index, and the
// generation collaborators.
type Journal struct {
	store     store.Driver
	index     vector.Driver
	embedder  embeddings.Embedder
	textGen   genai.TextGenerator
	imageGen  genai.ImageGenerator
	imageSize string
	logger    *zap.Logger
}

// Config holds the collaborators for a Journal. Store, Index, Embedder and
// Logger are required. The generators may be nil, in which case Analyze and
// Illustrate report failure instead of calling out.
type Config struct {
	Store          store.Driver
	Index          vector.Driver
	Embedder       embeddings.Embedder
	TextGenerator  genai.TextGenerator
	ImageGenerator genai.ImageGenerator

	// ImageSize is the square size requested from the image generator.
	// Defaults to DefaultImageSize if empty.
	ImageSize string

	Logger *zap.Logger
}

// New creates a Journal from its collaborators.
func New(cfg Config) (*Journal, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store driver is required")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("vector index driver is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	imageSize := cfg.ImageSize
	if imageSize == "" {
		imageSize = DefaultImageSize
	}

	return &Journal{
		store:     cfg.Store,
		index:     cfg.Index,
		embedder:  cfg.Embedder,
		textGen:   cfg.TextGenerator,
		imageGen:  cfg.ImageGenerator,
		imageSize: imageSize,
		logger:    cfg.Logger,
	}, nil
}

// Create persists a new record and synchronizes its embedding into the
// vector index. A failed synchronization is degraded, not fatal: the record
// is returned without embedding state and the fault is logged.
func (j *Journal) Create(ctx context.Context, title, date, entry string) (*dream.Record, error) {
	rec, err := j.store.Create(ctx, title, date, entry)
	if err != nil {
		return nil, err
	}

	j.logger.Info("created dream",
		zap.Int64("id", rec.ID),
		zap.String("title", rec.Title),
	)

	if err := j.Synchronize(ctx, rec.ID, rec.Entry); err != nil {
		j.logger.Error("embedding synchronization failed, record kept without embedding",
			zap.Int64("id", rec.ID),
			zap.Error(err),
		)
		return rec, nil
	}

	// Re-read so the caller sees the embedding the synchronization stored.
	synced, err := j.store.GetByID(ctx, rec.ID)
	if err != nil {
		return rec, nil
	}
	return synced, nil
}

// Synchronize embeds the given text and propagates it, store first, then
// index. A failed embed leaves both untouched. Safe to repeat: the store
// write and the index upsert both overwrite by id.
func (j *Journal) Synchronize(ctx context.Context, id int64, text string) error {
	vec, err := j.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding dream %d: %w", id, err)
	}

	rec, err := j.store.SetEmbedding(ctx, id, vec)
	if err != nil {
		return fmt.Errorf("storing embedding for dream %d: %w", id, err)
	}

	payload, err := rec.Payload()
	if err != nil {
		return fmt.Errorf("serializing dream %d: %w", id, err)
	}

	if err := j.index.Upsert(ctx, []vector.Point{{
		ID:      id,
		Vector:  vec,
		Payload: payload,
	}}); err != nil {
		return fmt.Errorf("indexing dream %d: %w", id, err)
	}

	j.logger.Debug("synchronized dream embedding",
		zap.Int64("id", id),
		zap.Int("dimensions", len(vec)),
	)

	return nil
}

// Analyze generates analysis text for a record's entry. The result is
// returned, not persisted.
func (j *Journal) Analyze(ctx context.Context, id int64) (string, error) {
	if j.textGen == nil {
		return "", fmt.Errorf("%w: no text generator configured", genai.ErrGeneration)
	}

	rec, err := j.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	analysis, err := j.textGen.Complete(ctx, analysisInstruction, rec.Entry, analysisMaxTokens)
	if err != nil {
		return "", fmt.Errorf("analyzing dream %d: %w", id, err)
	}

	return strings.TrimSpace(analysis), nil
}

// Illustrate generates an image for a record. The image prompt is derived
// from the entry by the text generator, never the raw entry itself, then
// given a fixed stylistic suffix. The result is returned, not persisted.
func (j *Journal) Illustrate(ctx context.Context, id int64) (*dream.Image, error) {
	if j.textGen == nil {
		return nil, fmt.Errorf("%w: no text generator configured", genai.ErrGeneration)
	}
	if j.imageGen == nil {
		return nil, fmt.Errorf("%w: no image generator configured", genai.ErrImageGeneration)
	}

	rec, err := j.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := j.textGen.Complete(ctx, summaryInstruction, rec.Entry, summaryMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("summarizing dream %d for illustration: %w", id, err)
	}

	prompt := strings.TrimSpace(summary) + imageStyleSuffix

	images, err := j.imageGen.Generate(ctx, prompt, imageCount, j.imageSize)
	if err != nil {
		return nil, fmt.Errorf("illustrating dream %d: %w", id, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no image returned for dream %d", genai.ErrImageGeneration, id)
	}

	return &dream.Image{URL: images[0].URL}, nil
}

// UpdateAnalysisAndImage overwrites both enrichment facets on a record.
// The entry text is untouched, so no re-embedding happens on this path.
func (j *Journal) UpdateAnalysisAndImage(ctx context.Context, id int64, analysis string, image *dream.Image) (*dream.Record, error) {
	rec, err := j.store.UpdateAnalysisAndImage(ctx, id, analysis, image)
	if err != nil {
		return nil, err
	}

	j.logger.Info("updated dream enrichment",
		zap.Int64("id", id),
		zap.Bool("has_analysis", rec.Analysis != ""),
		zap.Bool("has_image", rec.Image != nil),
	)

	return rec, nil
}

// Reconcile walks every stored record and repairs the index. Records without
// an embedding are fully synchronized; records whose index payload is
// missing or differs from the store's serialization are re-upserted from
// store state. Per-record failures are logged and skipped.
func (j *Journal) Reconcile(ctx context.Context) error {
	recs, err := j.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("listing dreams: %w", err)
	}

	var embedded []*dream.Record
	for _, rec := range recs {
		if len(rec.Embedding) == 0 {
			if err := j.Synchronize(ctx, rec.ID, rec.Entry); err != nil {
				j.logger.Error("reconcile: synchronization failed",
					zap.Int64("id", rec.ID),
					zap.Error(err),
				)
			}
			continue
		}
		embedded = append(embedded, rec)
	}

	if len(embedded) == 0 {
		return nil
	}

	ids := make([]int64, len(embedded))
	for i, rec := range embedded {
		ids[i] = rec.ID
	}

	points, err := j.index.Get(ctx, ids, false, true)
	if err != nil {
		return fmt.Errorf("reading index entries: %w", err)
	}

	indexed := make(map[int64][]byte, len(points))
	for _, p := range points {
		indexed[p.ID] = p.Payload
	}

	var repairs []vector.Point
	for _, rec := range embedded {
		payload, err := rec.Payload()
		if err != nil {
			j.logger.Error("reconcile: serialization failed",
				zap.Int64("id", rec.ID),
				zap.Error(err),
			)
			continue
		}

		if got, ok := indexed[rec.ID]; ok && bytes.Equal(got, payload) {
			continue
		}

		repairs = append(repairs, vector.Point{
			ID:      rec.ID,
			Vector:  rec.Embedding,
			Payload: payload,
		})
	}

	if len(repairs) == 0 {
		return nil
	}

	if err := j.index.Upsert(ctx, repairs); err != nil {
		return fmt.Errorf("repairing %d index entries: %w", len(repairs), err)
	}

	j.logger.Info("reconciled vector index",
		zap.Int("records", len(recs)),
		zap.Int("repaired", len(repairs)),
	)

	return nil
}

// Search embeds the query text and returns the most similar records. Results
// come from the index payloads; a hit whose payload cannot be decoded falls
// back to a store read and is dropped if the record is gone.
func (j *Journal) Search(ctx context.Context, query string, topK int) ([]*dream.Record, error) {
	if topK <= 0 {
		topK = DefaultSearchLimit
	}

	vec, err := j.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := j.index.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	records := make([]*dream.Record, 0, len(results))
	for _, r := range results {
		var rec dream.Record
		if len(r.Payload) > 0 && json.Unmarshal(r.Payload, &rec) == nil && rec.ID != 0 {
			records = append(records, &rec)
			continue
		}

		stored, err := j.store.GetByID(ctx, r.ID)
		if err != nil {
			if store.IsNotFound(err) {
				j.logger.Warn("search hit has no stored record",
					zap.Int64("id", r.ID),
				)
				continue
			}
			return nil, err
		}
		records = append(records, stored)
	}

	j.logger.Debug("searched dreams",
		zap.String("query", query),
		zap.Int("results", len(records)),
	)

	return records, nil
}

// Dreams lists all records in creation order.
func (j *Journal) Dreams(ctx context.Context) ([]*dream.Record, error) {
	return j.store.GetAll(ctx)
}

// Dream fetches one record by id.
func (j *Journal) Dream(ctx context.Context, id int64) (*dream.Record, error) {
	return j.store.GetByID(ctx, id)
}
