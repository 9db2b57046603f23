package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskflow-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow-api/internal/api/middleware"
)

// healthCheckTimeout bounds the database ping made by /health.
const healthCheckTimeout = 2 * time.Second

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.logger)

	var authLimit func(http.Handler) http.Handler
	if app.redis != nil {
		limiter := apiMiddleware.NewRateLimiter(
			app.redis,
			app.config.RateLimit.Requests,
			app.config.RateLimit.Window(),
			apiMiddleware.KeyByIPAndPath(),
			app.logger,
		)
		authLimit = limiter.Limit
	}

	api.RegisterRoutes(r, api.Handlers{
		Auth:  api.NewAuthHandler(app.userService, app.jwtService, app.config.Auth, app.logger),
		Tasks: api.NewTaskHandler(app.taskService, app.userService, app.logger),
		Users: api.NewUserHandler(app.userService, app.logger),
	}, authMiddleware.Authenticate, authLimit)

	r.Get("/health", app.healthCheck)

	return r
}

// healthCheck reports 200 when the database answers a ping and 503 otherwise.
func (app *application) healthCheck(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, "OK"
	if app.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := app.db.PingContext(ctx); err != nil {
			app.logger.Warn("health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, "database unavailable"
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		app.logger.Error("failed to write health check response", "error", err)
	}
}
