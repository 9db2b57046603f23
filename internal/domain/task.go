package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// TaskPriority ranks how urgent a task is
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// IsValid reports whether p is a known task priority.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	default:
		return false
	}
}

// MaxTaskTitleLength matches the width of the tasks.title column.
const MaxTaskTitleLength = 255

// Task validation errors
var (
	ErrEmptyTaskID          = NewValidationError("id", "cannot be empty", ErrInvalidID)
	ErrEmptyTaskCreatorID   = NewValidationError("creator_id", "cannot be empty", ErrInvalidID)
	ErrEmptyTaskTitle       = NewValidationError("title", "cannot be empty", nil)
	ErrTaskTitleTooLong     = NewValidationError("title", "must be at most 255 characters long", nil)
	ErrInvalidTaskStatus    = NewValidationError("status", "must be pending, in_progress, completed or failed", nil)
	ErrInvalidTaskPriority  = NewValidationError("priority", "must be low, medium, high or critical", nil)
	ErrInvalidTaskAssignee  = NewValidationError("assignee_id", "cannot be the nil UUID", ErrInvalidID)
	ErrCompletedAtMismatch  = NewValidationError("completed_at", "must be set exactly when status is completed", nil)
	ErrEmptyProcessingJobID = NewValidationError("processing_job_id", "cannot be empty", nil)
)

// Task is a unit of work created by one user and optionally assigned to another.
//
// CompletedAt is non-nil exactly when Status is TaskStatusCompleted. Every mutator
// on Task preserves that.
type Task struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	CreatorID       uuid.UUID    `json:"creator_id"`
	AssigneeID      *uuid.UUID   `json:"assignee_id,omitempty"`
	ProcessingJobID *string      `json:"processing_job_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// TaskUpdate lists the fields a partial update may change. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	AssigneeID  *uuid.UUID
}

// NewTask creates a pending task owned by creatorID. An empty priority defaults to medium.
func NewTask(
	creatorID uuid.UUID,
	title, description string,
	priority TaskPriority,
	assigneeID *uuid.UUID,
) (*Task, error) {
	if priority == "" {
		priority = TaskPriorityMedium
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Status:      TaskStatusPending,
		Priority:    priority,
		CreatorID:   creatorID,
		AssigneeID:  copyUUID(assigneeID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.CreatorID == uuid.Nil {
		return ErrEmptyTaskCreatorID
	}
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}
	if len([]rune(t.Title)) > MaxTaskTitleLength {
		return ErrTaskTitleTooLong
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidTaskPriority
	}
	if t.AssigneeID != nil && *t.AssigneeID == uuid.Nil {
		return ErrInvalidTaskAssignee
	}
	if (t.Status == TaskStatusCompleted) != (t.CompletedAt != nil) {
		return ErrCompletedAtMismatch
	}
	return nil
}

// IsCreator reports whether userID created the task.
func (t *Task) IsCreator(userID uuid.UUID) bool {
	return t.CreatorID == userID
}

// IsAssignee reports whether userID is the task's current assignee.
func (t *Task) IsAssignee(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// ApplyUpdate changes the fields present in u and refreshes UpdatedAt.
// The task is left unchanged if any provided field is invalid.
func (t *Task) ApplyUpdate(u TaskUpdate) error {
	next := *t
	if u.Title != nil {
		next.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.Priority != nil {
		next.Priority = *u.Priority
	}
	if u.AssigneeID != nil {
		next.AssigneeID = copyUUID(u.AssigneeID)
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return ErrInvalidTaskStatus
		}
		next.transition(*u.Status)
	}

	next.UpdatedAt = time.Now().UTC()
	if err := next.Validate(); err != nil {
		return err
	}

	*t = next
	return nil
}

// UpdateStatus moves the task to status, keeping CompletedAt consistent.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !status.IsValid() {
		return ErrInvalidTaskStatus
	}

	t.transition(status)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks the task completed now, even if it was already completed.
func (t *Task) Complete() {
	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Assign sets or clears the assignee. Nothing else changes besides UpdatedAt.
func (t *Task) Assign(assigneeID *uuid.UUID) error {
	if assigneeID != nil && *assigneeID == uuid.Nil {
		return ErrInvalidTaskAssignee
	}

	t.AssigneeID = copyUUID(assigneeID)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProcessingJob records the reference of the background job processing this task.
func (t *Task) SetProcessingJob(jobID string) error {
	if jobID == "" {
		return ErrEmptyProcessingJobID
	}

	t.ProcessingJobID = &jobID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// transition sets the status and the matching CompletedAt value.
func (t *Task) transition(status TaskStatus) {
	switch {
	case status == TaskStatusCompleted && t.Status != TaskStatusCompleted:
		now := time.Now().UTC()
		t.CompletedAt = &now
	case status != TaskStatusCompleted:
		t.CompletedAt = nil
	}
	t.Status = status
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
