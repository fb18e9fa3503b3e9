// Package kafka implements the eventstream Publisher on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/eventstream"
)

// DefaultTopic is the default topic for dream lifecycle events.
const DefaultTopic = "lucidd.dreams"

// Publisher writes dream events to a Kafka topic, keyed by dream id so all
// events for one record land on the same partition in order.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic is the topic to publish to. Defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  c.Brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})

	logger.Info("kafka publisher initialized",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishDream writes one dream event to the topic.
func (p *Publisher) PublishDream(ctx context.Context, event *eventstream.DreamEvent) error {
	if event == nil {
		return eventstream.ErrNilDreamEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling dream event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.Dream.ID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("writing dream event: %w", err)
	}

	p.logger.Debug("published dream event",
		zap.String("event_type", event.EventType),
		zap.Int64("dream_id", event.Dream.ID),
	)

	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
