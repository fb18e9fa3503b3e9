// Package qdrant provides a Qdrant vector index driver.
//
// Dream ids map directly onto Qdrant's numeric point ids, and the serialized
// record rides along as the point payload, so the index entry for an id is
// self-describing without a round trip to the document store.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for dream embeddings.
	DefaultCollectionName = "dreams"

	// payloadKey is the payload field holding the serialized record.
	payloadKey = "record"
)

// Driver implements vector.Driver using the Qdrant gRPC client.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant host (e.g., "localhost").
	Host string

	// Port is the Qdrant gRPC port (e.g., 6334).
	Port int

	// Collection is the collection name. Defaults to DefaultCollectionName.
	Collection string

	// Dimensions is the embedding dimension, required to create the
	// collection on first use.
	Dimensions uint
}

// NewDriver connects to Qdrant and lazily creates the collection if it does
// not exist yet.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: c.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		dimensions: uint64(c.Dimensions),
		logger:     logger,
	}

	if err := d.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to qdrant",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.String("collection", collection),
	)

	return d, nil
}

// ensureCollection creates the collection if it is missing.
func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     d.dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", vector.ErrConnection, d.collection, err)
	}

	d.logger.Info("created qdrant collection",
		zap.String("collection", d.collection),
		zap.Uint64("dimensions", d.dimensions),
	)

	return nil
}

// Upsert inserts or overwrites points keyed by record id.
func (d *Driver) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadKey: string(p.Payload),
			}),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Points:         structs,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	d.logger.Debug("upserted points to qdrant",
		zap.Int("count", len(points)),
	)

	return nil
}

// Get retrieves points by id. Missing ids are absent from the result.
func (d *Driver) Get(ctx context.Context, ids []int64, withVectors, withPayload bool) ([]vector.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	retrieved, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithVectors:    qdrant.NewWithVectors(withVectors),
		WithPayload:    qdrant.NewWithPayload(withPayload),
	})
	if err != nil {
		return nil, fmt.Errorf("getting %d points: %w", len(ids), err)
	}

	points := make([]vector.Point, 0, len(retrieved))
	for _, rp := range retrieved {
		p := vector.Point{
			ID: int64(rp.GetId().GetNum()),
		}

		if v := rp.GetVectors().GetVector(); v != nil {
			p.Vector = v.GetData()
		}

		if val, ok := rp.GetPayload()[payloadKey]; ok {
			p.Payload = []byte(val.GetStringValue())
		}

		points = append(points, p)
	}

	return points, nil
}

// Query returns the topK points most similar to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Result, error) {
	if topK <= 0 {
		topK = 10
	}

	scored, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	results := make([]vector.Result, 0, len(scored))
	for _, sp := range scored {
		r := vector.Result{
			Point: vector.Point{
				ID: int64(sp.GetId().GetNum()),
			},
			Score: sp.GetScore(),
		}

		if val, ok := sp.GetPayload()[payloadKey]; ok {
			r.Payload = []byte(val.GetStringValue())
		}

		results = append(results, r)
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Close releases the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
