package service

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Actor is the authenticated principal issuing a command or query.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ActorFor builds the Actor for an authenticated user.
func ActorFor(user *domain.User) Actor {
	return Actor{UserID: user.ID, IsAdmin: user.IsAdmin()}
}

// canModify reports whether the actor may update, delete or assign task.
func (a Actor) canModify(task *domain.Task) bool {
	return task.IsCreator(a.UserID) || a.IsAdmin
}

// canComplete reports whether the actor may complete task.
// The assignee is checked first, then the creator, then admin.
func (a Actor) canComplete(task *domain.Task) bool {
	return task.IsAssignee(a.UserID) || task.IsCreator(a.UserID) || a.IsAdmin
}

// canView reports whether the actor may read task.
func (a Actor) canView(task *domain.Task) bool {
	return task.IsCreator(a.UserID) || task.IsAssignee(a.UserID) || a.IsAdmin
}
