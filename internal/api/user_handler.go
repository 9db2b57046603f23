package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// UserHandler serves the /users endpoints.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UserHandler")
	}

	return &UserHandler{
		users:  users,
		logger: logger.With(slog.String("component", "user_handler")),
	}
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := resolveCurrentUser(w, r, h.users, log)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := resolveCurrentUser(w, r, h.users, log); !ok {
		return
	}

	offset, limit, err := parsePage(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	users, err := h.users.ListUsers(r.Context(), offset, limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, usersToResponse(users))
}

// GetUser handles GET /users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, userID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// UpdateUser handles PUT /users/{id}. Changing a role requires an admin.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, userID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if req.Role != nil && !actor.IsAdmin {
		log.Warn("non-admin attempted a role change",
			slog.String("target_user_id", userID.String()))
		HandleAPIError(w, r, service.ErrPermissionDenied, "Only administrators can change roles")
		return
	}

	cmd := service.UpdateUserCommand{
		UserID:     userID,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
	}
	if req.Gender != nil {
		g := domain.Gender(*req.Gender)
		cmd.Gender = &g
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		cmd.Role = &role
	}

	user, err := h.users.UpdateUser(r.Context(), cmd)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// DeleteUser handles DELETE /users/{id}. Any authenticated user may delete any
// user, matching service.UserService.DeleteUser.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, userID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), actor, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("user deleted", slog.String("target_user_id", userID.String()))
	shared.RespondWithNoContent(w)
}
