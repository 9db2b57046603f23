package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrUnknownRecipient is returned by a RecipientResolver when the user no longer exists.
var ErrUnknownRecipient = errors.New("unknown recipient")

// ConsumerPrefetch is the number of unacknowledged messages the broker may push at once.
const ConsumerPrefetch = 16

// RecipientResolver looks up where a user's notifications go.
type RecipientResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (Recipient, error)
}

// Consumer reads notifications from the broker and delivers them.
type Consumer struct {
	ch        Channel
	queue     string
	resolver  RecipientResolver
	deliverer Deliverer
	logger    *slog.Logger
}

// NewConsumer declares queue on ch and returns a Consumer for it.
func NewConsumer(
	ch Channel,
	queue string,
	resolver RecipientResolver,
	deliverer Deliverer,
	logger *slog.Logger,
) (*Consumer, error) {
	if err := DeclareQueue(ch, queue); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		ch:        ch,
		queue:     queue,
		resolver:  resolver,
		deliverer: deliverer,
		logger:    logger.With(slog.String("component", "notification_consumer"), slog.String("queue", queue)),
	}, nil
}

// Run consumes until ctx is done or the broker closes the delivery channel.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(ConsumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := c.ch.Consume(c.queue, "taskflow-worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}

	c.logger.Info("notification consumer listening")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("notification consumer stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle processes a single delivery and acknowledges it.
//
// Undecodable messages and messages for users that no longer exist are dropped.
// A failed delivery is requeued once; a redelivered message that fails again is dropped.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var n Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		c.logger.Warn("bad message", slog.String("error", err.Error()), slog.String("message_id", d.MessageId))
		c.settle(d.Nack(false, false))
		return
	}
	if err := n.Validate(); err != nil {
		c.logger.Warn("bad notification", slog.String("error", err.Error()), slog.String("message_id", d.MessageId))
		c.settle(d.Nack(false, false))
		return
	}

	log := c.logger.With(
		slog.String("notification_id", n.ID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("recipient_id", n.RecipientID.String()),
	)

	to, err := c.resolver.Resolve(ctx, n.RecipientID)
	if err != nil {
		if errors.Is(err, ErrUnknownRecipient) {
			log.Warn("recipient no longer exists, dropping notification")
			c.settle(d.Ack(false))
			return
		}
		log.Error("failed to resolve recipient", slog.String("error", err.Error()))
		c.settle(d.Nack(false, !d.Redelivered))
		return
	}

	if err := c.deliverer.Deliver(ctx, to, n); err != nil {
		log.Error("delivery failed",
			slog.String("error", err.Error()),
			slog.Bool("requeue", !d.Redelivered))
		c.settle(d.Nack(false, !d.Redelivered))
		return
	}

	c.settle(d.Ack(false))
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.logger.Error("failed to acknowledge delivery", slog.String("error", err.Error()))
	}
}
