package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Kind names the task event a notification reports.
type Kind string

// Notification kinds.
const (
	KindCreated   Kind = "created"
	KindUpdated   Kind = "updated"
	KindDeleted   Kind = "deleted"
	KindAssigned  Kind = "assigned"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

// ErrInvalidNotification is returned for a notification missing its kind, recipient or task.
var ErrInvalidNotification = errors.New("invalid notification")

var messages = map[Kind]string{
	KindCreated:   "Task %q was created",
	KindUpdated:   "Task %q was updated",
	KindDeleted:   "Task %q was deleted",
	KindAssigned:  "Task %q was assigned to you",
	KindCompleted: "Task %q was completed",
	KindFailed:    "Processing of task %q failed",
}

// Notification is a message about a task addressed to one user.
// It is the JSON body published to the broker.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	RecipientID uuid.UUID `json:"recipient_id"`
	TaskID      uuid.UUID `json:"task_id"`
	TaskTitle   string    `json:"task_title"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// New builds a notification of kind about task for recipientID.
func New(kind Kind, recipientID uuid.UUID, task *domain.Task) Notification {
	format, ok := messages[kind]
	if !ok {
		format = "Task %q changed"
	}

	return Notification{
		ID:          uuid.New(),
		Kind:        kind,
		RecipientID: recipientID,
		TaskID:      task.ID,
		TaskTitle:   task.Title,
		Message:     fmt.Sprintf(format, task.Title),
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks the fields a consumer relies on.
func (n Notification) Validate() error {
	if _, ok := messages[n.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNotification, n.Kind)
	}
	if n.RecipientID == uuid.Nil {
		return fmt.Errorf("%w: missing recipient", ErrInvalidNotification)
	}
	if n.TaskID == uuid.Nil {
		return fmt.Errorf("%w: missing task", ErrInvalidNotification)
	}
	return nil
}

// Subject is the e-mail subject line for the notification.
func (n Notification) Subject() string {
	return fmt.Sprintf("[taskflow] task %s", n.Kind)
}
