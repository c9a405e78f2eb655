// Package bus distributes committed events to consumers. Delivery is
// fanout multicast: every bound consumer receives its own copy of every
// published event, at least once.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// MessageHandler processes one delivered event. Returning an error causes
// the delivery to be rejected without requeue.
type MessageHandler func(ctx context.Context, event store.Event) error

const maxDialDelay = 60 * time.Second

// DialOptions configures the retrying AMQP dial.
type DialOptions struct {
	URL      string
	Attempts int
	Delay    time.Duration
	Logger   *slog.Logger
}

// DialWithRetry tries to connect to RabbitMQ with exponential backoff.
// It respects context cancellation for graceful shutdown.
func DialWithRetry(ctx context.Context, opts DialOptions) (*amqp091.Connection, error) {
	var lastErr error

	for i := 1; i <= opts.Attempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				opts.Logger.Info("rabbit connected", slog.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err

		sleep := opts.Delay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}

		opts.Logger.Warn("rabbit dial failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.New("dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w",
		opts.Attempts, lastErr)
}

// AMQPPublisher publishes events to a durable fanout exchange.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

func NewAMQPPublisher(conn *amqp091.Connection, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange, "fanout", true, false, false, false, nil,
	); err != nil {
		return nil, err
	}

	return &AMQPPublisher{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

// Publish sends one committed event to the exchange. The message body is
// the full stored event record, so consumers act on the exact event that
// was appended and never re-query the log.
func (p *AMQPPublisher) Publish(ctx context.Context, event store.Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, "", false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Type:         event.EventType,
			Body:         body,
		},
	)
	if err == nil {
		p.log.Debug("published",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("version", event.Version),
		)
	}
	return err
}

func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// AMQPConsumer consumes events from a durable named queue bound to the
// fanout exchange. Each logical consumer uses its own queue name, so all
// consumers see every event and redelivery survives a restart.
type AMQPConsumer struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
	queue    string
	log      *slog.Logger
	prefetch int
}

func NewAMQPConsumer(conn *amqp091.Connection, exchange, queue string, prefetch int, logger *slog.Logger) (*AMQPConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		return nil, err
	}

	return &AMQPConsumer{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		queue:    q.Name,
		log:      logger,
		prefetch: prefetch,
	}, nil
}

// Consume blocks, delivering events to handler until ctx is cancelled or
// the channel closes. An event is acked only after the handler returned
// nil; on error the delivery is rejected without requeue, after logging.
func (c *AMQPConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.log.Info("consumer started", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			var event store.Event
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				c.log.Error("undecodable message dropped",
					slog.String("message_id", msg.MessageId),
					slog.Any("error", err),
				)
				_ = msg.Nack(false, false)
				continue
			}

			if err := handler(ctx, event); err != nil {
				c.log.Error("handler error",
					slog.String("event_type", event.EventType),
					slog.String("aggregate_id", event.AggregateID),
					slog.Any("error", err),
				)
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func (c *AMQPConsumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
