package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"team-stock-exchange/internal/domain"
)

// DefaultKafkaTopic is the topic price updates are written to.
const DefaultKafkaTopic = "market.price"

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per price update, keyed by symbol so a
// symbol's updates stay ordered within its partition.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
}

// KafkaOptions contains configuration for creating a KafkaPublisher.
type KafkaOptions struct {
	Brokers []string
	Topic   string        // Default: DefaultKafkaTopic
	Writer  MessageWriter // optional; built from Brokers when nil
}

// NewKafkaPublisher creates a publisher.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	topic := opts.Topic
	if topic == "" {
		topic = DefaultKafkaTopic
	}

	writer := opts.Writer
	if writer == nil {
		if len(opts.Brokers) == 0 {
			return nil, fmt.Errorf("kafka publisher: no brokers")
		}
		writer = &kafka.Writer{
			Addr:                   kafka.TCP(opts.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            3,
			BatchTimeout:           50 * time.Millisecond,
		}
	}

	return &KafkaPublisher{writer: writer, topic: topic}, nil
}

// Notify implements Notifier.
func (p *KafkaPublisher) Notify(ctx context.Context, report domain.TickReport) error {
	updates := Updates(report)
	if len(updates) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(updates))
	for _, u := range updates {
		value, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal update %s: %w", u.Symbol, err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(u.Symbol),
			Value: value,
			Time:  u.Timestamp,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write kafka messages: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
