package testutils

import (
	"context"
	"fmt"

	"github.com/lucidjournal/lucidd/pkg/vector"
)

// MockVectorDriver is a test vector driver that keeps points in memory,
// keyed by id like the real drivers.
type MockVectorDriver struct {
	Points map[int64]vector.Point

	// Results is returned by Query regardless of the embedding.
	Results []vector.Result

	// FailUpsert causes Upsert to return an error.
	FailUpsert bool

	// UpsertCalls counts Upsert invocations.
	UpsertCalls int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Points: make(map[int64]vector.Point),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, points []vector.Point) error {
	m.UpsertCalls++
	if m.FailUpsert {
		return fmt.Errorf("mock upsert failure")
	}
	for _, p := range points {
		m.Points[p.ID] = p
	}
	return nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []int64, _, _ bool) ([]vector.Point, error) {
	points := make([]vector.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.Points[id]; ok {
			points = append(points, p)
		}
	}
	return points, nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.Result, error) {
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
