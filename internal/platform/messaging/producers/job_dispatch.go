package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/mediaforge/generation-ledger/internal/config"
)

// JobDispatchProducer publishes accepted jobs onto the dispatch topic for the
// job processor to pick up
type JobDispatchProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewJobDispatchProducer creates a new API Gateway producer and ensures the
// dispatch topic exists
func NewJobDispatchProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*JobDispatchProducer, error) {
	if cfg.DispatchTopic == "" {
		return nil, fmt.Errorf("kafka dispatch topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dispatch producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.DispatchTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure dispatch topic %s exists: %w", cfg.DispatchTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DispatchTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.DispatchTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.DispatchTopic, "count", len(messages))
			}
		},
	}

	return &JobDispatchProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DispatchTopic,
	}, nil
}

// Publish serializes the value and writes it keyed so all messages for one
// account land on the same partition
func (p *JobDispatchProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for dispatch producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via dispatch producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via dispatch producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via dispatch producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *JobDispatchProducer) Close() error {
	p.logger.Info("Closing job dispatch Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dispatch kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
