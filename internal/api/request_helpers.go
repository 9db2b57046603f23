package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// getPathUUID parses the chi path parameter paramName as a UUID.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", nil)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// resolveCurrentUser loads the user behind the request's access token. It writes
// a 401 and returns false when the token's user no longer exists.
func resolveCurrentUser(
	w http.ResponseWriter,
	r *http.Request,
	users service.UserService,
	log *slog.Logger,
) (*domain.User, bool) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, false
	}

	user, err := users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			log.Warn("token refers to a missing user", slog.String("user_id", userID.String()))
			HandleAPIError(w, r, domain.ErrUnauthorized, "")
			return nil, false
		}
		HandleAPIError(w, r, err, "Failed to resolve current user")
		return nil, false
	}

	return user, true
}

// resolveActorAndPathUUID resolves the current actor and the {paramName} path UUID,
// writing the error response itself when either fails.
func resolveActorAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	users service.UserService,
	paramName string,
	log *slog.Logger,
) (service.Actor, uuid.UUID, bool) {
	user, ok := resolveCurrentUser(w, r, users, log)
	if !ok {
		return service.Actor{}, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		log.Warn("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return service.Actor{}, uuid.Nil, false
	}

	return service.ActorFor(user), id, true
}

// parsePage reads offset and limit from the query string. skip is accepted as
// an alias for offset.
func parsePage(q url.Values) (offset, limit int, err error) {
	rawOffset := q.Get("offset")
	if rawOffset == "" {
		rawOffset = q.Get("skip")
	}

	if offset, err = parseIntParam("offset", rawOffset); err != nil {
		return 0, 0, err
	}
	if limit, err = parseIntParam("limit", q.Get("limit")); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

// parseTaskFilter reads the GET /tasks filters. Non-admins only ever see the
// tasks they created, whatever creator_id they ask for.
func parseTaskFilter(q url.Values, actor service.Actor) (store.TaskFilter, error) {
	var filter store.TaskFilter

	offset, limit, err := parsePage(q)
	if err != nil {
		return filter, err
	}
	filter.Offset, filter.Limit = offset, limit

	if v := q.Get("status"); v != "" {
		status := domain.TaskStatus(v)
		filter.Status = &status
	}
	if v := q.Get("priority"); v != "" {
		priority := domain.TaskPriority(v)
		filter.Priority = &priority
	}
	if filter.AssigneeID, err = parseUUIDParam("assignee_id", q.Get("assignee_id")); err != nil {
		return filter, err
	}
	if filter.CreatorID, err = parseUUIDParam("creator_id", q.Get("creator_id")); err != nil {
		return filter, err
	}

	if !actor.IsAdmin {
		creatorID := actor.UserID
		filter.CreatorID = &creatorID
	}
	return filter, nil
}

func parseIntParam(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", nil)
	}
	return v, nil
}

func parseUUIDParam(name, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "has invalid format", domain.ErrInvalidID)
	}
	return &id, nil
}
