package notify

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker is an open RabbitMQ connection. Each component takes its own channel.
type Broker struct {
	conn *amqp.Connection
}

// Connect dials the RabbitMQ server at url.
func Connect(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return &Broker{conn: conn}, nil
}

// Channel opens a new channel on the connection.
func (b *Broker) Channel() (*amqp.Channel, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	return ch, nil
}

// Close closes the connection along with every channel opened on it.
func (b *Broker) Close() error {
	if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}
