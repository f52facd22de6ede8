package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// DispatchPublisher publishes generation job dispatches to the primary topic.
type DispatchPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher routes undeliverable messages to the dead letter topic.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps the kafka.Writer methods the producers use, so tests can
// substitute a fake without a broker.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
