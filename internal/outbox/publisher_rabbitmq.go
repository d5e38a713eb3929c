package outbox

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher publishes to a topic exchange with the event type as the
// routing key.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string

	mu sync.Mutex
}

func NewRabbitPublisher(conn *amqp.Connection, channel *amqp.Channel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange}
}

func (p *RabbitPublisher) Publish(ctx context.Context, e *Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		e.EventType,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         e.Payload,
			Timestamp:    e.CreatedAt,
			MessageId:    e.ID.String(),
			Type:         e.EventType,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.channel.Close()
	return p.conn.Close()
}
