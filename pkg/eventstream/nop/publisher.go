package nop

import (
	"context"

	"github.com/lucidjournal/lucidd/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishDream validates input and otherwise does nothing.
func (p *Publisher) PublishDream(_ context.Context, event *eventstream.DreamEvent) error {
	if event == nil {
		return eventstream.ErrNilDreamEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
