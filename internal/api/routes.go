package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth  *AuthHandler
	Tasks *TaskHandler
	Users *UserHandler
}

// RegisterRoutes mounts the v1 API on r. authenticate guards every route except
// the auth endpoints, which go through authLimit instead. A nil authLimit is skipped.
func RegisterRoutes(r chi.Router, h Handlers, authenticate, authLimit func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if authLimit != nil {
				r.Use(authLimit)
			}
			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/token", h.Auth.Login)
			r.Post("/auth/refresh", h.Auth.RefreshToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/users/me", h.Users.Me)
			r.Get("/users", h.Users.ListUsers)
			r.Get("/users/{id}", h.Users.GetUser)
			r.Put("/users/{id}", h.Users.UpdateUser)
			r.Delete("/users/{id}", h.Users.DeleteUser)

			r.Post("/tasks", h.Tasks.CreateTask)
			r.Get("/tasks", h.Tasks.ListTasks)
			r.Get("/tasks/{id}", h.Tasks.GetTask)
			r.Put("/tasks/{id}", h.Tasks.UpdateTask)
			r.Delete("/tasks/{id}", h.Tasks.DeleteTask)
			r.Post("/tasks/{id}/assign", h.Tasks.AssignTask)
			r.Post("/tasks/{id}/complete", h.Tasks.CompleteTask)
		})
	})
}
