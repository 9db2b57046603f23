package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mailgun/mailgun-go/v4"
)

// Recipient is the resolved addressee of a notification.
type Recipient struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// Deliverer hands a notification to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, to Recipient, n Notification) error
}

// LogDeliverer records notifications in the log instead of sending them.
// It is used when no mail provider is configured.
type LogDeliverer struct {
	logger *slog.Logger
}

// NewLogDeliverer creates a LogDeliverer. If logger is nil, a default logger will be used.
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDeliverer{logger: logger.With(slog.String("component", "log_deliverer"))}
}

// Deliver implements Deliverer.
func (d *LogDeliverer) Deliver(ctx context.Context, to Recipient, n Notification) error {
	d.logger.InfoContext(ctx, "notification delivered",
		slog.String("notification_id", n.ID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("recipient_id", to.UserID.String()),
		slog.String("task_id", n.TaskID.String()),
		slog.String("message", n.Message))
	return nil
}

// mailSender is the part of the Mailgun client used for sending.
type mailSender interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// MailgunDeliverer sends notifications as plain-text e-mail through Mailgun.
type MailgunDeliverer struct {
	client  mailSender
	sender  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewMailgunDeliverer creates a MailgunDeliverer for domain, signing requests with apiKey.
func NewMailgunDeliverer(domain, apiKey, sender string, logger *slog.Logger) *MailgunDeliverer {
	return newMailgunDeliverer(mailgun.NewMailgun(domain, apiKey), sender, logger)
}

func newMailgunDeliverer(client mailSender, sender string, logger *slog.Logger) *MailgunDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailgunDeliverer{
		client:  client,
		sender:  sender,
		timeout: 10 * time.Second,
		logger:  logger.With(slog.String("component", "mailgun_deliverer")),
	}
}

// Deliver implements Deliverer.
func (d *MailgunDeliverer) Deliver(ctx context.Context, to Recipient, n Notification) error {
	if to.Email == "" {
		return fmt.Errorf("recipient %s has no email address", to.UserID)
	}

	text := fmt.Sprintf("Hello %s,\n\n%s.\n", to.Name, n.Message)
	msg := d.client.NewMessage(d.sender, n.Subject(), text, to.Email)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, id, err := d.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailgun send failed: %w", err)
	}

	d.logger.InfoContext(ctx, "notification e-mailed",
		slog.String("notification_id", n.ID.String()),
		slog.String("recipient_id", to.UserID.String()),
		slog.String("mailgun_id", id))
	return nil
}
