package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// TaskHandler serves the /tasks endpoints.
type TaskHandler struct {
	tasks  service.TaskService
	users  service.UserService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks service.TaskService, users service.UserService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		tasks:  tasks,
		users:  users,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := resolveCurrentUser(w, r, h.users, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), service.CreateTaskCommand{
		Actor:                     service.ActorFor(user),
		Title:                     req.Title,
		Description:               req.Description,
		Priority:                  domain.TaskPriority(req.Priority),
		AssigneeID:                req.AssigneeID,
		NeedsBackgroundProcessing: req.NeedsBackgroundProcessing,
		ProcessingParams:          req.ProcessingParams,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := resolveCurrentUser(w, r, h.users, log)
	if !ok {
		return
	}
	actor := service.ActorFor(user)

	filter, err := parseTaskFilter(r.URL.Query(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tasks.GetTasks(r.Context(), service.GetTasksQuery{Actor: actor, Filter: filter})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), service.GetTaskQuery{Actor: actor, TaskID: taskID})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PUT /tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), service.UpdateTaskCommand{
		Actor:  actor,
		TaskID: taskID,
		Update: req.toDomain(),
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), service.DeleteTaskCommand{Actor: actor, TaskID: taskID}); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithNoContent(w)
}

// AssignTask handles POST /tasks/{id}/assign.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.AssignTask(r.Context(), service.AssignTaskCommand{
		Actor:      actor,
		TaskID:     taskID,
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// CompleteTask handles POST /tasks/{id}/complete.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := resolveActorAndPathUUID(w, r, h.users, "id", log)
	if !ok {
		return
	}

	task, err := h.tasks.CompleteTask(r.Context(), service.CompleteTaskCommand{Actor: actor, TaskID: taskID})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}
