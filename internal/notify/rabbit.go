package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used by the publisher and consumer.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Ensure *amqp.Channel satisfies Channel
var _ Channel = (*amqp.Channel)(nil)

// DeclareQueue declares the durable notification queue on ch.
func DeclareQueue(ch Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// RabbitPublisher publishes notifications as persistent JSON messages to a queue
// through the default exchange.
type RabbitPublisher struct {
	ch     Channel
	queue  string
	logger *slog.Logger

	// serialises publishes on the shared channel
	mu sync.Mutex
}

// Ensure RabbitPublisher implements Publisher interface
var _ Publisher = (*RabbitPublisher)(nil)

// NewRabbitPublisher declares queue on ch and returns a publisher for it.
func NewRabbitPublisher(ch Channel, queue string, logger *slog.Logger) (*RabbitPublisher, error) {
	if err := DeclareQueue(ch, queue); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RabbitPublisher{
		ch:     ch,
		queue:  queue,
		logger: logger.With(slog.String("component", "rabbit_publisher"), slog.String("queue", queue)),
	}, nil
}

// Publish implements Publisher.
func (p *RabbitPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ID.String(),
			Type:         string(n.Kind),
			Timestamp:    n.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	p.logger.DebugContext(ctx, "notification published",
		slog.String("notification_id", n.ID.String()),
		slog.String("kind", string(n.Kind)))
	return nil
}

// Close closes the underlying channel.
func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}
