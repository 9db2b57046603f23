package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/notify"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// ProcessingDispatcher submits background processing for a task.
type ProcessingDispatcher interface {
	// SubmitProcessing enqueues processing of taskID and returns the job reference.
	SubmitProcessing(ctx context.Context, taskID uuid.UUID, params map[string]any) (string, error)
}

// Notifier submits a notification for asynchronous delivery.
// Implementations must return without waiting for the delivery.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// TaskService provides the authorized task commands and queries.
type TaskService interface {
	// CreateTask creates a pending task owned by the actor.
	CreateTask(ctx context.Context, cmd CreateTaskCommand) (*domain.Task, error)

	// UpdateTask applies a partial update. Requires the creator or an admin.
	UpdateTask(ctx context.Context, cmd UpdateTaskCommand) (*domain.Task, error)

	// DeleteTask removes a task. Requires the creator or an admin.
	DeleteTask(ctx context.Context, cmd DeleteTaskCommand) error

	// AssignTask sets or clears the assignee. Requires the creator or an admin.
	AssignTask(ctx context.Context, cmd AssignTaskCommand) (*domain.Task, error)

	// CompleteTask marks the task completed. Requires the assignee, the creator or an admin.
	CompleteTask(ctx context.Context, cmd CompleteTaskCommand) (*domain.Task, error)

	// GetTask returns a task visible to the actor.
	GetTask(ctx context.Context, q GetTaskQuery) (*domain.Task, error)

	// GetTasks returns a page of tasks matching the filter.
	GetTasks(ctx context.Context, q GetTasksQuery) ([]*domain.Task, error)

	// BeginProcessing moves the task carrying jobID from pending to in_progress.
	// Tasks in any other status are returned unchanged.
	BeginProcessing(ctx context.Context, jobID string) (*domain.Task, error)

	// FinishProcessing completes the task carrying jobID, or marks it failed when
	// failure is non-nil, and notifies the creator. Settled tasks are returned unchanged.
	FinishProcessing(ctx context.Context, jobID string, failure error) (*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	db         *sql.DB
	tasks      store.TaskStore
	users      store.UserStore
	processing ProcessingDispatcher
	notifier   Notifier
	logger     *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	users store.UserStore,
	processing ProcessingDispatcher,
	notifier Notifier,
	log *slog.Logger,
) (TaskService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", nil)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", nil)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", nil)
	}
	if processing == nil {
		return nil, domain.NewValidationError("processing", "cannot be nil", nil)
	}
	if notifier == nil {
		return nil, domain.NewValidationError("notifier", "cannot be nil", nil)
	}
	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		db:         db,
		tasks:      tasks,
		users:      users,
		processing: processing,
		notifier:   notifier,
		logger:     log.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, cmd CreateTaskCommand) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("actor_id", cmd.Actor.UserID.String()))

	task, err := domain.NewTask(cmd.Actor.UserID, cmd.Title, cmd.Description, cmd.Priority, cmd.AssigneeID)
	if err != nil {
		log.Debug("invalid task", slog.String("error", err.Error()))
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if task.AssigneeID != nil {
			if err := s.ensureAssigneeExists(ctx, s.users.WithTx(tx), *task.AssigneeID); err != nil {
				return err
			}
		}

		txTasks := s.tasks.WithTx(tx)
		if err := txTasks.Create(ctx, task); err != nil {
			return err
		}

		if !cmd.NeedsBackgroundProcessing {
			return nil
		}

		// The job reference must be persisted with the task, so a failed
		// submission fails the whole command.
		jobID, err := s.processing.SubmitProcessing(ctx, task.ID, cmd.ProcessingParams)
		if err != nil {
			return fmt.Errorf("failed to submit background processing: %w", err)
		}
		if err := task.SetProcessingJob(jobID); err != nil {
			return err
		}
		return txTasks.Update(ctx, task)
	})
	if err != nil {
		s.logFailure(log, "create task", err)
		return nil, wrap("create task", "could not create task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.Bool("background_processing", task.ProcessingJobID != nil))
	if task.ProcessingJobID != nil {
		s.notify(ctx, notify.KindCreated, task.CreatorID, task)
	}
	return task, nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(ctx context.Context, cmd UpdateTaskCommand) (*domain.Task, error) {
	log := s.taskLogger(ctx, cmd.Actor, cmd.TaskID)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByID(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !cmd.Actor.canModify(current) {
			return ErrPermissionDenied
		}

		previousAssignee := current.AssigneeID
		if err := current.ApplyUpdate(cmd.Update); err != nil {
			return err
		}
		if assigneeChanged(previousAssignee, current.AssigneeID) {
			if err := s.ensureAssigneeExists(ctx, s.users.WithTx(tx), *current.AssigneeID); err != nil {
				return err
			}
		}

		if err := txTasks.Update(ctx, current); err != nil {
			return err
		}
		task = current
		return nil
	})
	if err != nil {
		s.logFailure(log, "update task", err)
		return nil, wrap("update task", "could not update task", err)
	}

	log.Info("task updated", slog.String("status", string(task.Status)))
	s.notify(ctx, notify.KindUpdated, cmd.Actor.UserID, task)
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, cmd DeleteTaskCommand) error {
	log := s.taskLogger(ctx, cmd.Actor, cmd.TaskID)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByID(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !cmd.Actor.canModify(current) {
			return ErrPermissionDenied
		}
		if err := txTasks.Delete(ctx, current.ID); err != nil {
			return err
		}
		task = current
		return nil
	})
	if err != nil {
		s.logFailure(log, "delete task", err)
		return wrap("delete task", "could not delete task", err)
	}

	log.Info("task deleted")
	s.notify(ctx, notify.KindDeleted, cmd.Actor.UserID, task)
	return nil
}

// AssignTask implements TaskService.AssignTask
func (s *taskServiceImpl) AssignTask(ctx context.Context, cmd AssignTaskCommand) (*domain.Task, error) {
	log := s.taskLogger(ctx, cmd.Actor, cmd.TaskID)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByID(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !cmd.Actor.canModify(current) {
			return ErrPermissionDenied
		}

		if err := current.Assign(cmd.AssigneeID); err != nil {
			return err
		}
		if current.AssigneeID != nil {
			if err := s.ensureAssigneeExists(ctx, s.users.WithTx(tx), *current.AssigneeID); err != nil {
				return err
			}
		}

		if err := txTasks.Update(ctx, current); err != nil {
			return err
		}
		task = current
		return nil
	})
	if err != nil {
		s.logFailure(log, "assign task", err)
		return nil, wrap("assign task", "could not assign task", err)
	}

	if task.AssigneeID == nil {
		log.Info("task unassigned")
		return task, nil
	}

	log.Info("task assigned", slog.String("assignee_id", task.AssigneeID.String()))
	s.notify(ctx, notify.KindAssigned, *task.AssigneeID, task)
	return task, nil
}

// CompleteTask implements TaskService.CompleteTask
func (s *taskServiceImpl) CompleteTask(ctx context.Context, cmd CompleteTaskCommand) (*domain.Task, error) {
	log := s.taskLogger(ctx, cmd.Actor, cmd.TaskID)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByID(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !cmd.Actor.canComplete(current) {
			return ErrPermissionDenied
		}

		current.Complete()
		if err := txTasks.Update(ctx, current); err != nil {
			return err
		}
		task = current
		return nil
	})
	if err != nil {
		s.logFailure(log, "complete task", err)
		return nil, wrap("complete task", "could not complete task", err)
	}

	log.Info("task completed")
	s.notify(ctx, notify.KindCompleted, task.CreatorID, task)
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, q GetTaskQuery) (*domain.Task, error) {
	log := s.taskLogger(ctx, q.Actor, q.TaskID)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.tasks.WithTx(tx).GetByID(ctx, q.TaskID)
		if err != nil {
			return err
		}
		if !q.Actor.canView(current) {
			return ErrPermissionDenied
		}
		task = current
		return nil
	})
	if err != nil {
		s.logFailure(log, "get task", err)
		return nil, wrap("get task", "could not retrieve task", err)
	}
	return task, nil
}

// GetTasks implements TaskService.GetTasks
func (s *taskServiceImpl) GetTasks(ctx context.Context, q GetTasksQuery) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("actor_id", q.Actor.UserID.String()))

	if err := validateTaskFilter(q.Filter); err != nil {
		return nil, err
	}
	filter := q.Filter.Normalize()

	var tasks []*domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		tasks, err = s.tasks.WithTx(tx).List(ctx, filter)
		return err
	})
	if err != nil {
		s.logFailure(log, "list tasks", err)
		return nil, wrap("list tasks", "could not list tasks", err)
	}

	log.Debug("listed tasks",
		slog.Int("count", len(tasks)),
		slog.Int("offset", filter.Offset),
		slog.Int("limit", filter.Limit))
	return tasks, nil
}

// BeginProcessing implements TaskService.BeginProcessing
func (s *taskServiceImpl) BeginProcessing(ctx context.Context, jobID string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("job_id", jobID))

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByProcessingJobID(ctx, jobID)
		if err != nil {
			return err
		}
		task = current
		if current.Status != domain.TaskStatusPending {
			return nil
		}

		if err := current.UpdateStatus(domain.TaskStatusInProgress); err != nil {
			return err
		}
		return txTasks.Update(ctx, current)
	})
	if err != nil {
		s.logFailure(log, "begin processing", err)
		return nil, wrap("begin processing", "could not start processing", err)
	}

	log.Info("task processing started",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return task, nil
}

// FinishProcessing implements TaskService.FinishProcessing
func (s *taskServiceImpl) FinishProcessing(ctx context.Context, jobID string, failure error) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("job_id", jobID))

	var (
		task    *domain.Task
		settled bool
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByProcessingJobID(ctx, jobID)
		if err != nil {
			return err
		}
		task = current
		if isSettled(current) {
			settled = true
			return nil
		}

		if failure != nil {
			if err := current.UpdateStatus(domain.TaskStatusFailed); err != nil {
				return err
			}
		} else {
			current.Complete()
		}
		return txTasks.Update(ctx, current)
	})
	if err != nil {
		s.logFailure(log, "finish processing", err)
		return nil, wrap("finish processing", "could not record processing outcome", err)
	}

	log = log.With(slog.String("task_id", task.ID.String()))
	if settled {
		log.Info("task already settled, processing outcome ignored", slog.String("status", string(task.Status)))
		return task, nil
	}

	if failure != nil {
		log.Warn("task processing failed", slog.String("error", failure.Error()))
		s.notify(ctx, notify.KindFailed, task.CreatorID, task)
		return task, nil
	}

	log.Info("task processing completed")
	s.notify(ctx, notify.KindCompleted, task.CreatorID, task)
	return task, nil
}

// ensureAssigneeExists reports a missing assignee as a validation error on assignee_id.
func (s *taskServiceImpl) ensureAssigneeExists(ctx context.Context, users store.UserStore, id uuid.UUID) error {
	if _, err := users.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewValidationError("assignee_id", "does not reference an existing user", nil)
		}
		return err
	}
	return nil
}

// notify submits a notification. Failures are logged and otherwise ignored.
func (s *taskServiceImpl) notify(ctx context.Context, kind notify.Kind, recipient uuid.UUID, task *domain.Task) {
	n := notify.New(kind, recipient, task)
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to submit notification",
			slog.String("kind", string(kind)),
			slog.String("task_id", task.ID.String()),
			slog.String("recipient_id", recipient.String()),
			slog.String("error", err.Error()))
	}
}

func (s *taskServiceImpl) taskLogger(ctx context.Context, actor Actor, taskID uuid.UUID) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("actor_id", actor.UserID.String()),
		slog.String("task_id", taskID.String()),
	)
}

// logFailure logs expected failures at debug level and everything else as an error.
func (s *taskServiceImpl) logFailure(log *slog.Logger, operation string, err error) {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		log.Warn(operation+" denied", slog.String("error", err.Error()))
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		log.Debug(operation+" rejected", slog.String("error", err.Error()))
	default:
		log.Error(operation+" failed", slog.String("error", err.Error()))
	}
}

func validateTaskFilter(f store.TaskFilter) error {
	if f.Status != nil && !f.Status.IsValid() {
		return domain.ErrInvalidTaskStatus
	}
	if f.Priority != nil && !f.Priority.IsValid() {
		return domain.ErrInvalidTaskPriority
	}
	if f.Offset < 0 {
		return domain.NewValidationError("offset", "cannot be negative", nil)
	}
	if f.Limit < 0 {
		return domain.NewValidationError("limit", "cannot be negative", nil)
	}
	return nil
}

func assigneeChanged(before, after *uuid.UUID) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}

func isSettled(task *domain.Task) bool {
	return task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed
}
