package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// KafkaPublisher is the Kafka-backed bus. Events are keyed by aggregate id
// so per-aggregate ordering is preserved within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event store.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: data,
		Time:  event.Timestamp,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads events from a topic. Each logical consumer uses its
// own group id so the stream is multicast across consumers, not shared.
type KafkaConsumer struct {
	reader *kafka.Reader
	log    *slog.Logger
}

func NewKafkaConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &KafkaConsumer{reader: reader, log: logger}
}

// Consume blocks, delivering events to handler until ctx is cancelled.
// Handler failures are logged and the message is skipped; Kafka's offset
// commit plays the role of the ack.
func (c *KafkaConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.Error("error reading message", slog.Any("error", err))
				continue
			}

			var event store.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.log.Error("undecodable message dropped", slog.Any("error", err))
				continue
			}

			if err := handler(ctx, event); err != nil {
				c.log.Error("handler error",
					slog.String("event_type", event.EventType),
					slog.String("aggregate_id", event.AggregateID),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
