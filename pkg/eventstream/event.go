package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/lucidjournal/lucidd/pkg/dream"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDreamCreated is emitted after a dream record is persisted.
	EventTypeDreamCreated = "lucidd.dream.created"

	// EventTypeDreamEnriched is emitted after enrichment facets are persisted.
	EventTypeDreamEnriched = "lucidd.dream.enriched"
)

// DreamEvent is a transport-neutral event payload for a dream lifecycle
// transition.
type DreamEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Dream         dream.Record `json:"dream"`
}

// NewDreamEvent builds an event for the given record. The record's embedding
// is stripped from the payload; consumers that need vectors read the index.
func NewDreamEvent(eventType string, rec *dream.Record) *DreamEvent {
	snapshot := rec.Clone()
	snapshot.Embedding = nil

	return &DreamEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Dream:         *snapshot,
	}
}
