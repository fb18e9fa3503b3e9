package eventstream

import "context"

// Publisher publishes dream lifecycle events to an event stream backend.
type Publisher interface {
	PublishDream(ctx context.Context, event *DreamEvent) error
	Close() error
}
