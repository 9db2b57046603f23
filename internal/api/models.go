package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Email      string `json:"email"       validate:"required,email"`
	Password   string `json:"password"    validate:"required,min=12,max=72"`
	FirstName  string `json:"first_name"  validate:"required,max=100"`
	LastName   string `json:"last_name"   validate:"required,max=100"`
	MiddleName string `json:"middle_name" validate:"max=100"`
	Gender     string `json:"gender"      validate:"required,oneof=male female"`
	// Role may only name a non-admin role; admins are seeded out of band.
	Role string `json:"role" validate:"omitempty,oneof=user student"`
}

// LoginRequest is the payload for POST /auth/token.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse is returned by the register and login endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	// ExpiresAt is the RFC 3339 time the access token expires.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest is the payload for POST /auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse carries a rotated token pair.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    string `json:"expires_at"`
}

// UserResponse is the public view of a user. It never carries password data.
type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	Gender     string    `json:"gender"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateUserRequest is the payload for PUT /users/{id}. Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Email      *string `json:"email"       validate:"omitempty,email"`
	Password   *string `json:"password"    validate:"omitempty,min=12,max=72"`
	FirstName  *string `json:"first_name"  validate:"omitempty,max=100"`
	LastName   *string `json:"last_name"   validate:"omitempty,max=100"`
	MiddleName *string `json:"middle_name" validate:"omitempty,max=100"`
	Gender     *string `json:"gender"      validate:"omitempty,oneof=male female"`
	Role       *string `json:"role"        validate:"omitempty,oneof=admin user student"`
}

// CreateTaskRequest is the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=255"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"    validate:"omitempty,oneof=low medium high critical"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`

	NeedsBackgroundProcessing bool           `json:"needs_background_processing"`
	ProcessingParams          map[string]any `json:"processing_params"`
}

// UpdateTaskRequest is the payload for PUT /tasks/{id}. Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"       validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"      validate:"omitempty,oneof=pending in_progress completed failed"`
	Priority    *string    `json:"priority"    validate:"omitempty,oneof=low medium high critical"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
}

// AssignTaskRequest is the payload for POST /tasks/{id}/assign. A null
// assignee_id unassigns the task.
type AssignTaskRequest struct {
	AssigneeID *uuid.UUID `json:"assignee_id"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	CreatorID       uuid.UUID  `json:"creator_id"`
	AssigneeID      *uuid.UUID `json:"assignee_id"`
	ProcessingJobID *string    `json:"processing_job_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		MiddleName: u.MiddleName,
		Gender:     string(u.Gender),
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func usersToResponse(users []*domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userToResponse(u))
	}
	return out
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		CreatorID:       t.CreatorID,
		AssigneeID:      t.AssigneeID,
		ProcessingJobID: t.ProcessingJobID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

func (r UpdateTaskRequest) toDomain() domain.TaskUpdate {
	u := domain.TaskUpdate{
		Title:       r.Title,
		Description: r.Description,
		AssigneeID:  r.AssigneeID,
	}
	if r.Status != nil {
		s := domain.TaskStatus(*r.Status)
		u.Status = &s
	}
	if r.Priority != nil {
		p := domain.TaskPriority(*r.Priority)
		u.Priority = &p
	}
	return u
}
