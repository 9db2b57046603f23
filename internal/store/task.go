package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Pagination bounds for task and user listings.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// TaskFilter narrows a task listing. Nil fields do not filter.
type TaskFilter struct {
	CreatorID  *uuid.UUID
	AssigneeID *uuid.UUID
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	Offset     int
	Limit      int
}

// Normalize applies the default page size and clamps offset and limit into range.
func (f TaskFilter) Normalize() TaskFilter {
	f.Offset, f.Limit = NormalizePage(f.Offset, f.Limit)
	return f
}

// NormalizePage clamps a negative offset to zero and limit into (0, MaxListLimit],
// defaulting a non-positive limit to DefaultListLimit.
func NormalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return offset, limit
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task.
	// Returns ErrInvalidEntity if the creator or assignee does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetByProcessingJobID retrieves the task whose background job reference is jobID.
	// Returns ErrTaskNotFound if no task carries that reference.
	GetByProcessingJobID(ctx context.Context, jobID string) (*domain.Task, error)

	// List returns tasks matching filter, newest first.
	// The filter is normalized before use.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Update overwrites every mutable column of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByCreator removes every task created by creatorID and returns how many were removed.
	DeleteByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error)

	// UnassignUser clears the assignee on every task assigned to assigneeID
	// and returns how many tasks were detached.
	UnassignUser(ctx context.Context, assigneeID uuid.UUID) (int64, error)

	// WithTx returns a TaskStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
