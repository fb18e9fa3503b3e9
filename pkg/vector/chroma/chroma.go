// Package chroma provides a Chroma vector index driver over its REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/vector"
)

// DefaultCollectionName is the default collection for dream embeddings.
const DefaultCollectionName = "dreams"

const collectionsBase = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// Driver implements vector.Driver using Chroma's REST API. Dream ids are
// rendered as decimal strings for Chroma's string id space; the serialized
// record is stored as the point's document.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string
}

// NewDriver creates a new Chroma vector driver, lazily creating the
// collection on first use.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	collectionID, err := d.getOrCreateCollection(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: getting or creating collection %q: %v", vector.ErrConnection, collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	url := d.baseURL + collectionsBase + "/" + d.collectionName

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist yet, create it.
	createBody, err := json.Marshal(map[string]string{"name": d.collectionName})
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+collectionsBase, bytes.NewReader(createBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// Upsert inserts or overwrites points keyed by record id.
func (d *Driver) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(points)),
		Embeddings: make([][]float32, len(points)),
		Documents:  make([]string, len(points)),
	}
	for i, p := range points {
		reqBody.IDs[i] = strconv.FormatInt(p.ID, 10)
		reqBody.Embeddings[i] = p.Vector
		reqBody.Documents[i] = string(p.Payload)
	}

	var discard json.RawMessage
	if err := d.post(ctx, "/upsert", reqBody, &discard); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	d.logger.Debug("upserted points to chroma",
		zap.Int("count", len(points)),
	)

	return nil
}

// Get retrieves points by id. Missing ids are absent from the result.
func (d *Driver) Get(ctx context.Context, ids []int64, withVectors, withPayload bool) ([]vector.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	include := []string{}
	if withVectors {
		include = append(include, "embeddings")
	}
	if withPayload {
		include = append(include, "documents")
	}

	reqBody := chromaGetRequest{
		IDs:     make([]string, len(ids)),
		Include: include,
	}
	for i, id := range ids {
		reqBody.IDs[i] = strconv.FormatInt(id, 10)
	}

	var getResp chromaGetResponse
	if err := d.post(ctx, "/get", reqBody, &getResp); err != nil {
		return nil, fmt.Errorf("getting %d points: %w", len(ids), err)
	}

	points := make([]vector.Point, 0, len(getResp.IDs))
	for i, rawID := range getResp.IDs {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			d.logger.Warn("skipping non-numeric chroma id", zap.String("id", rawID))
			continue
		}

		p := vector.Point{ID: id}
		if i < len(getResp.Embeddings) {
			p.Vector = getResp.Embeddings[i]
		}
		if i < len(getResp.Documents) {
			p.Payload = []byte(getResp.Documents[i])
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

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "distances"},
	}

	var queryResp chromaQueryResponse
	if err := d.post(ctx, "/query", reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	var results []vector.Result

	// We query with a single embedding, so only the first group matters.
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, rawID := range ids {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			d.logger.Warn("skipping non-numeric chroma id", zap.String("id", rawID))
			continue
		}

		r := vector.Result{Point: vector.Point{ID: id}}
		if i < len(documents) {
			r.Payload = []byte(documents[i])
		}
		// Lower distance = higher similarity.
		if i < len(distances) {
			r.Score = 1.0 / (1.0 + distances[i])
		}

		results = append(results, r)
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// post sends a JSON POST to a collection sub-endpoint and decodes the reply.
func (d *Driver) post(ctx context.Context, endpoint string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := d.baseURL + collectionsBase + "/" + d.collectionID + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
