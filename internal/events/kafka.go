package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig contains configuration for the Kafka event publisher.
type KafkaConfig struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	WriteTimeout time.Duration `json:"write_timeout"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	RequiredAcks int           `json:"required_acks"`
}

// DefaultKafkaConfig returns defaults suitable for a low-throughput
// risk event stream.
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "riskcore.events",
		WriteTimeout: 1 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: 1,
	}
}

// KafkaPublisher publishes event envelopes as JSON messages keyed by the
// event's natural key, so all events for one (user, token) pair stay ordered
// on a single partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(config *KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if config == nil {
		config = DefaultKafkaConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.CRC32Balancer{},
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		Compression:  kafka.Snappy,
	}

	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes a single event.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: data,
		Time:  event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("type", string(event.Type)),
			zap.String("key", event.Key()))
		return err
	}
	return nil
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
