package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const taskColumns = `id, title, description, status, priority, creator_id, assignee_id,
	processing_job_id, created_at, updated_at, completed_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
// Returns store.ErrInvalidEntity if the creator or assignee does not exist.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.CreatorID,
		task.AssigneeID,
		task.ProcessingJobID,
		task.CreatedAt,
		task.UpdatedAt,
		task.CompletedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("creator_id", task.CreatorID.String()))
		return writeError("task", "create", err, nil)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("creator_id", task.CreatorID.String()),
		slog.String("priority", string(task.Priority)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return s.getOne(ctx, query, id, slog.String("task_id", id.String()))
}

// GetByProcessingJobID implements store.TaskStore.GetByProcessingJobID
func (s *PostgresTaskStore) GetByProcessingJobID(ctx context.Context, jobID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE processing_job_id = $1`
	return s.getOne(ctx, query, jobID, slog.String("processing_job_id", jobID))
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, arg any, attr slog.Attr) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", attr)
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", attr, slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args := buildTaskListQuery(filter.Normalize())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

// buildTaskListQuery renders the filtered listing. The filter must already be normalized.
func buildTaskListQuery(filter store.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.CreatorID != nil {
		add("creator_id", *filter.CreatorID)
	}
	if filter.AssigneeID != nil {
		add("assignee_id", *filter.AssigneeID)
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}
	if filter.Priority != nil {
		add("priority", string(*filter.Priority))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(taskColumns)
	b.WriteString(" FROM tasks")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	args = append(args, filter.Offset, filter.Limit)
	fmt.Fprintf(&b, " ORDER BY created_at DESC, id OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	return b.String(), args
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, assignee_id = $6,
		    processing_job_id = $7, updated_at = $8, completed_at = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.AssigneeID,
		task.ProcessingJobID,
		task.UpdatedAt,
		task.CompletedAt,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return writeError("task", "update", err, nil)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrTaskNotFound
		}
		return err
	}

	log.Debug("task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return writeError("task", "delete", err, nil)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrTaskNotFound
		}
		return err
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// DeleteByCreator implements store.TaskStore.DeleteByCreator
func (s *PostgresTaskStore) DeleteByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	return s.execCount(ctx, `DELETE FROM tasks WHERE creator_id = $1`, creatorID, "delete tasks by creator")
}

// UnassignUser implements store.TaskStore.UnassignUser
func (s *PostgresTaskStore) UnassignUser(ctx context.Context, assigneeID uuid.UUID) (int64, error) {
	return s.execCount(ctx,
		`UPDATE tasks SET assignee_id = NULL, updated_at = NOW() WHERE assignee_id = $1`,
		assigneeID, "unassign user")
}

func (s *PostgresTaskStore) execCount(ctx context.Context, query string, userID uuid.UUID, op string) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to "+op,
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, writeError("task", op, err, nil)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Debug(op, slog.String("user_id", userID.String()), slog.Int64("rows", n))
	return n, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		status      string
		priority    string
		assigneeID  uuid.NullUUID
		jobID       sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&task.CreatorID,
		&assigneeID,
		&jobID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	if assigneeID.Valid {
		id := assigneeID.UUID
		task.AssigneeID = &id
	}
	if jobID.Valid {
		ref := jobID.String
		task.ProcessingJobID = &ref
	}
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		task.CompletedAt = &at
	}

	return &task, nil
}
