package events

import (
	"context"
	"encoding/json"
	"fmt"

	"bookify/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDispatcher publishes event envelopes to a RabbitMQ topic exchange,
// routing by event name (booking.created, booking.cancelled, ...).
type AMQPDispatcher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPDispatcher dials the broker and declares a durable topic
// exchange.
func NewAMQPDispatcher(url, exchange string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Dispatch publishes the envelope as JSON with the event name as routing
// key.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, envelope models.EventEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	return d.ch.PublishWithContext(ctx, d.exchange, envelope.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close releases the channel and connection.
func (d *AMQPDispatcher) Close() error {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
