package service

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// CreateTaskCommand creates a task owned by the actor.
type CreateTaskCommand struct {
	Actor       Actor
	Title       string
	Description string
	Priority    domain.TaskPriority
	AssigneeID  *uuid.UUID

	// NeedsBackgroundProcessing submits a processing job with ProcessingParams
	// and stores the job reference on the task.
	NeedsBackgroundProcessing bool
	ProcessingParams          map[string]any
}

// UpdateTaskCommand partially updates a task. Nil fields in Update are left unchanged.
type UpdateTaskCommand struct {
	Actor  Actor
	TaskID uuid.UUID
	Update domain.TaskUpdate
}

// DeleteTaskCommand deletes a task.
type DeleteTaskCommand struct {
	Actor  Actor
	TaskID uuid.UUID
}

// AssignTaskCommand sets the assignee of a task. A nil AssigneeID unassigns it.
type AssignTaskCommand struct {
	Actor      Actor
	TaskID     uuid.UUID
	AssigneeID *uuid.UUID
}

// CompleteTaskCommand marks a task completed.
type CompleteTaskCommand struct {
	Actor  Actor
	TaskID uuid.UUID
}

// GetTaskQuery reads a single task.
type GetTaskQuery struct {
	Actor  Actor
	TaskID uuid.UUID
}

// GetTasksQuery lists tasks matching Filter.
type GetTasksQuery struct {
	Actor  Actor
	Filter store.TaskFilter
}

// CreateUserCommand registers a user.
type CreateUserCommand struct {
	Email    string
	Password string
	Profile  domain.UserProfile
}

// UpdateUserCommand partially updates a user. Nil fields are left unchanged.
type UpdateUserCommand struct {
	UserID     uuid.UUID
	Email      *string
	Password   *string
	FirstName  *string
	LastName   *string
	MiddleName *string
	Gender     *domain.Gender
	Role       *domain.Role
}
