package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mailgun/mailgun-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChannel records publishes and serves a scripted delivery stream.
type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	declareErr error
	prefetch   int
	deliveries chan amqp.Delivery
	consumeErr error
	closed     bool
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return amqp.Queue{}, c.declareErr
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	if c.consumeErr != nil {
		return nil, c.consumeErr
	}
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func (c *fakeChannel) publishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

// fakeAcknowledger records how a delivery was settled.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

// recordingPublisher captures notifications handed to it by the dispatcher.
type recordingPublisher struct {
	mu    sync.Mutex
	got   []Notification
	err   error
	block chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, n Notification) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, n)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

type staticResolver struct {
	recipients map[uuid.UUID]Recipient
	err        error
}

func (r staticResolver) Resolve(_ context.Context, id uuid.UUID) (Recipient, error) {
	if r.err != nil {
		return Recipient{}, r.err
	}
	to, ok := r.recipients[id]
	if !ok {
		return Recipient{}, ErrUnknownRecipient
	}
	return to, nil
}

type recordingDeliverer struct {
	delivered []Notification
	to        []Recipient
	err       error
}

func (d *recordingDeliverer) Deliver(_ context.Context, to Recipient, n Notification) error {
	if d.err != nil {
		return d.err
	}
	d.to = append(d.to, to)
	d.delivered = append(d.delivered, n)
	return nil
}

// fakeMailSender stands in for the Mailgun client.
type fakeMailSender struct {
	from, subject, text string
	to                  []string
	err                 error
}

func (s *fakeMailSender) NewMessage(from, subject, text string, to ...string) *mailgun.Message {
	s.from, s.subject, s.text, s.to = from, subject, text, to
	return &mailgun.Message{}
}

func (s *fakeMailSender) Send(context.Context, *mailgun.Message) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return "Queued. Thank you.", "<id@example.com>", nil
}
