package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/notify"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type taskFixture struct {
	svc        service.TaskService
	mock       sqlmock.Sqlmock
	tasks      *memTaskStore
	users      *memUserStore
	processing *fakeProcessing
	notifier   *fakeNotifier

	alice *domain.User
	bob   *domain.User
	admin *domain.User
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	db, mock := newMockDB(t)

	f := &taskFixture{
		mock:       mock,
		tasks:      newMemTaskStore(),
		users:      newMemUserStore(),
		processing: &fakeProcessing{jobID: "job-1"},
		notifier:   &fakeNotifier{},
		alice:      newUser(t, "alice@example.com", domain.RoleUser),
		bob:        newUser(t, "bob@example.com", domain.RoleUser),
		admin:      newUser(t, "admin@example.com", domain.RoleAdmin),
	}
	for _, u := range []*domain.User{f.alice, f.bob, f.admin} {
		f.users.put(u)
	}

	svc, err := service.NewTaskService(db, f.tasks, f.users, f.processing, f.notifier, discardLogger())
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seedTask stores a pending task created by creator and assigned to assignee, if any.
func (f *taskFixture) seedTask(t *testing.T, creator, assignee *domain.User) *domain.Task {
	t.Helper()
	var assigneeID *uuid.UUID
	if assignee != nil {
		assigneeID = &assignee.ID
	}
	task, err := domain.NewTask(creator.ID, "Seeded task", "seeded", domain.TaskPriorityLow, assigneeID)
	require.NoError(t, err)
	f.tasks.put(task)
	return task
}

func actor(u *domain.User) service.Actor {
	return service.ActorFor(u)
}

func TestNewTaskService_RequiresDependencies(t *testing.T) {
	db, _ := newMockDB(t)
	tasks, users := newMemTaskStore(), newMemUserStore()
	processing, notifier := &fakeProcessing{}, &fakeNotifier{}

	_, err := service.NewTaskService(nil, tasks, users, processing, notifier, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewTaskService(db, nil, users, processing, notifier, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewTaskService(db, tasks, nil, processing, notifier, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewTaskService(db, tasks, users, nil, notifier, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewTaskService(db, tasks, users, processing, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	svc, err := service.NewTaskService(db, tasks, users, processing, notifier, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending task owned by actor", func(t *testing.T) {
		f := newTaskFixture(t)
		expectCommit(f.mock)

		task, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{
			Actor:       actor(f.alice),
			Title:       "Write report",
			Description: "Q3 numbers",
			Priority:    domain.TaskPriorityHigh,
			AssigneeID:  &f.bob.ID,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, f.alice.ID, task.CreatorID)
		assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
		assert.True(t, task.IsAssignee(f.bob.ID))
		assert.Nil(t, task.ProcessingJobID)
		assert.Nil(t, task.CompletedAt)
		assert.Equal(t, task, f.tasks.get(task.ID))
		assert.Empty(t, f.processing.submitted)
		assert.Empty(t, f.notifier.sent(), "plain tasks are created silently")
	})

	t.Run("background processing stores job reference", func(t *testing.T) {
		f := newTaskFixture(t)
		expectCommit(f.mock)
		params := map[string]any{"pages": 12}

		task, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{
			Actor:                     actor(f.alice),
			Title:                     "Crunch data",
			NeedsBackgroundProcessing: true,
			ProcessingParams:          params,
		})
		require.NoError(t, err)

		require.NotNil(t, task.ProcessingJobID)
		assert.Equal(t, "job-1", *task.ProcessingJobID)
		assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
		assert.Equal(t, []uuid.UUID{task.ID}, f.processing.submitted)
		assert.Equal(t, params, f.processing.params[0])

		stored := f.tasks.get(task.ID)
		require.NotNil(t, stored.ProcessingJobID)
		assert.Equal(t, "job-1", *stored.ProcessingJobID)

		sent := f.notifier.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, notify.KindCreated, sent[0].Kind)
		assert.Equal(t, f.alice.ID, sent[0].RecipientID)
		assert.Equal(t, task.ID, sent[0].TaskID)
	})

	t.Run("processing submission failure rolls back", func(t *testing.T) {
		f := newTaskFixture(t)
		f.processing.err = errors.New("redis unavailable")
		expectRollback(f.mock)

		task, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{
			Actor:                     actor(f.alice),
			Title:                     "Crunch data",
			NeedsBackgroundProcessing: true,
		})
		require.Error(t, err)
		assert.Nil(t, task)

		var serviceErr *service.ServiceError
		assert.ErrorAs(t, err, &serviceErr)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("invalid input is rejected before any transaction", func(t *testing.T) {
		f := newTaskFixture(t)

		_, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{Actor: actor(f.alice), Title: "  "})
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrEmptyTaskTitle)

		_, err = f.svc.CreateTask(ctx, service.CreateTaskCommand{
			Actor:    actor(f.alice),
			Title:    "title",
			Priority: "urgent",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTaskPriority)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("unknown assignee is a validation error", func(t *testing.T) {
		f := newTaskFixture(t)
		expectRollback(f.mock)

		_, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{
			Actor:      actor(f.alice),
			Title:      "title",
			AssigneeID: ptr(uuid.New()),
		})
		require.ErrorIs(t, err, service.ErrValidation)

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "assignee_id", validationErr.Field)
		assert.Zero(t, f.tasks.writes)
	})

	t.Run("notification failure does not fail the command", func(t *testing.T) {
		f := newTaskFixture(t)
		f.notifier.err = notify.ErrQueueFull
		expectCommit(f.mock)

		task, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{
			Actor:                     actor(f.alice),
			Title:                     "title",
			NeedsBackgroundProcessing: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, f.tasks.get(task.ID))
		assert.Len(t, f.notifier.sent(), 1)
	})
}

func TestTaskService_ModifyRequiresCreatorOrAdmin(t *testing.T) {
	ctx := context.Background()

	ops := map[string]func(f *taskFixture, a service.Actor, taskID uuid.UUID) error{
		"update": func(f *taskFixture, a service.Actor, taskID uuid.UUID) error {
			_, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
				Actor:  a,
				TaskID: taskID,
				Update: domain.TaskUpdate{Title: ptr("hijacked")},
			})
			return err
		},
		"delete": func(f *taskFixture, a service.Actor, taskID uuid.UUID) error {
			return f.svc.DeleteTask(ctx, service.DeleteTaskCommand{Actor: a, TaskID: taskID})
		},
		"assign": func(f *taskFixture, a service.Actor, taskID uuid.UUID) error {
			_, err := f.svc.AssignTask(ctx, service.AssignTaskCommand{Actor: a, TaskID: taskID, AssigneeID: &a.UserID})
			return err
		},
	}

	for name, op := range ops {
		t.Run(name+" by stranger is denied without mutation", func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.seedTask(t, f.alice, nil)
			before := f.tasks.get(task.ID)
			expectRollback(f.mock)

			err := op(f, actor(f.bob), task.ID)
			assert.ErrorIs(t, err, service.ErrPermissionDenied)
			assert.Equal(t, before, f.tasks.get(task.ID))
			assert.Zero(t, f.tasks.writes)
			assert.Empty(t, f.notifier.sent())
		})

		t.Run(name+" by assignee is denied", func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.seedTask(t, f.alice, f.bob)
			expectRollback(f.mock)

			assert.ErrorIs(t, op(f, actor(f.bob), task.ID), service.ErrPermissionDenied)
		})

		t.Run(name+" by creator succeeds", func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.seedTask(t, f.alice, nil)
			expectCommit(f.mock)

			assert.NoError(t, op(f, actor(f.alice), task.ID))
		})

		t.Run(name+" by admin succeeds", func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.seedTask(t, f.alice, nil)
			expectCommit(f.mock)

			assert.NoError(t, op(f, actor(f.admin), task.ID))
		})

		t.Run(name+" of missing task is not found", func(t *testing.T) {
			f := newTaskFixture(t)
			expectRollback(f.mock)

			err := op(f, actor(f.admin), uuid.New())
			assert.ErrorIs(t, err, service.ErrNotFound)
			assert.ErrorIs(t, err, store.ErrTaskNotFound)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("admin partial update changes only priority", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, f.bob)
		before := f.tasks.get(task.ID)
		expectCommit(f.mock)

		updated, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
			Actor:  actor(f.admin),
			TaskID: task.ID,
			Update: domain.TaskUpdate{Priority: ptr(domain.TaskPriorityCritical)},
		})
		require.NoError(t, err)

		after := f.tasks.get(task.ID)
		assert.Equal(t, domain.TaskPriorityCritical, after.Priority)
		assert.Equal(t, before.Title, after.Title)
		assert.Equal(t, before.Description, after.Description)
		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, before.AssigneeID, after.AssigneeID)
		assert.Equal(t, before.CreatorID, after.CreatorID)
		assert.Equal(t, before.CompletedAt, after.CompletedAt)
		assert.Equal(t, updated, after)

		sent := f.notifier.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, notify.KindUpdated, sent[0].Kind)
		assert.Equal(t, f.admin.ID, sent[0].RecipientID)
	})

	t.Run("status change keeps completed_at consistent", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, nil)
		expectCommit(f.mock)
		expectCommit(f.mock)

		done, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
			Actor:  actor(f.alice),
			TaskID: task.ID,
			Update: domain.TaskUpdate{Status: ptr(domain.TaskStatusCompleted)},
		})
		require.NoError(t, err)
		assert.NotNil(t, done.CompletedAt)

		reopened, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
			Actor:  actor(f.alice),
			TaskID: task.ID,
			Update: domain.TaskUpdate{Status: ptr(domain.TaskStatusInProgress)},
		})
		require.NoError(t, err)
		assert.Nil(t, reopened.CompletedAt)
		assert.NoError(t, f.tasks.get(task.ID).Validate())
	})

	t.Run("invalid field is a validation error", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, nil)
		expectRollback(f.mock)

		_, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
			Actor:  actor(f.alice),
			TaskID: task.ID,
			Update: domain.TaskUpdate{Status: ptr(domain.TaskStatus("done"))},
		})
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("new assignee must exist", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, nil)
		expectRollback(f.mock)

		_, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
			Actor:  actor(f.alice),
			TaskID: task.ID,
			Update: domain.TaskUpdate{AssigneeID: ptr(uuid.New())},
		})
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.Nil(t, f.tasks.get(task.ID).AssigneeID)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, nil)
		f.tasks.updateErr = errors.New("connection reset")
		expectRollback(f.mock)

		_, err := f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
			Actor:  actor(f.alice),
			TaskID: task.ID,
			Update: domain.TaskUpdate{Title: ptr("new")},
		})
		var serviceErr *service.ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "update task", serviceErr.Operation)
	})
}

func TestDeleteTask(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seedTask(t, f.alice, f.bob)
	expectCommit(f.mock)

	require.NoError(t, f.svc.DeleteTask(context.Background(), service.DeleteTaskCommand{
		Actor:  actor(f.alice),
		TaskID: task.ID,
	}))
	assert.Nil(t, f.tasks.get(task.ID))

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindDeleted, sent[0].Kind)
	assert.Equal(t, f.alice.ID, sent[0].RecipientID)
	assert.Equal(t, task.ID, sent[0].TaskID)
}

func TestAssignAndCompleteScenario(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t)
	a, b := f.alice, f.bob

	expectCommit(f.mock)
	task, err := f.svc.CreateTask(ctx, service.CreateTaskCommand{Actor: actor(a), Title: "Ship release"})
	require.NoError(t, err)

	expectCommit(f.mock)
	assigned, err := f.svc.AssignTask(ctx, service.AssignTaskCommand{Actor: actor(a), TaskID: task.ID, AssigneeID: &b.ID})
	require.NoError(t, err)
	assert.True(t, assigned.IsAssignee(b.ID))
	assert.Equal(t, domain.TaskStatusPending, assigned.Status, "assigning changes nothing but the assignee")

	expectRollback(f.mock)
	_, err = f.svc.UpdateTask(ctx, service.UpdateTaskCommand{
		Actor:  actor(b),
		TaskID: task.ID,
		Update: domain.TaskUpdate{Title: ptr("renamed by assignee")},
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	expectCommit(f.mock)
	completed, err := f.svc.CompleteTask(ctx, service.CompleteTaskCommand{Actor: actor(b), TaskID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	expectCommit(f.mock)
	seen, err := f.svc.GetTask(ctx, service.GetTaskQuery{Actor: actor(b), TaskID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, completed, seen)

	sent := f.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.KindAssigned, sent[0].Kind)
	assert.Equal(t, b.ID, sent[0].RecipientID)
	assert.Equal(t, notify.KindCompleted, sent[1].Kind)
	assert.Equal(t, a.ID, sent[1].RecipientID)
}

func TestAssignTask(t *testing.T) {
	ctx := context.Background()

	t.Run("unassigning sends no notification", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, f.bob)
		expectCommit(f.mock)

		updated, err := f.svc.AssignTask(ctx, service.AssignTaskCommand{Actor: actor(f.alice), TaskID: task.ID})
		require.NoError(t, err)
		assert.Nil(t, updated.AssigneeID)
		assert.Nil(t, f.tasks.get(task.ID).AssigneeID)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("unknown assignee is rejected", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, nil)
		expectRollback(f.mock)

		_, err := f.svc.AssignTask(ctx, service.AssignTaskCommand{
			Actor:      actor(f.alice),
			TaskID:     task.ID,
			AssigneeID: ptr(uuid.New()),
		})
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("nil uuid assignee is rejected", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.seedTask(t, f.alice, nil)
		expectRollback(f.mock)

		_, err := f.svc.AssignTask(ctx, service.AssignTaskCommand{
			Actor:      actor(f.alice),
			TaskID:     task.ID,
			AssigneeID: ptr(uuid.Nil),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTaskAssignee)
	})
}

func TestCompleteTask_Authorization(t *testing.T) {
	ctx := context.Background()
	stranger := func(f *taskFixture) *domain.User { return newUser(t, "eve@example.com", domain.RoleUser) }

	tests := []struct {
		name    string
		actor   func(f *taskFixture) *domain.User
		wantErr error
	}{
		{"assignee who is neither creator nor admin", func(f *taskFixture) *domain.User { return f.bob }, nil},
		{"creator", func(f *taskFixture) *domain.User { return f.alice }, nil},
		{"admin", func(f *taskFixture) *domain.User { return f.admin }, nil},
		{"stranger", stranger, service.ErrPermissionDenied},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.seedTask(t, f.alice, f.bob)
			if tc.wantErr != nil {
				expectRollback(f.mock)
			} else {
				expectCommit(f.mock)
			}

			completed, err := f.svc.CompleteTask(ctx, service.CompleteTaskCommand{Actor: actor(tc.actor(f)), TaskID: task.ID})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				stored := f.tasks.get(task.ID)
				assert.Equal(t, domain.TaskStatusPending, stored.Status)
				assert.Nil(t, stored.CompletedAt)
				assert.Empty(t, f.notifier.sent())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.TaskStatusCompleted, completed.Status)
			assert.NotNil(t, completed.CompletedAt)

			sent := f.notifier.sent()
			require.Len(t, sent, 1)
			assert.Equal(t, f.alice.ID, sent[0].RecipientID, "completion is reported to the creator")
		})
	}
}

func TestGetTask(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t)
	task := f.seedTask(t, f.alice, f.bob)
	eve := newUser(t, "eve@example.com", domain.RoleUser)

	for _, u := range []*domain.User{f.alice, f.bob, f.admin} {
		expectCommit(f.mock)
		got, err := f.svc.GetTask(ctx, service.GetTaskQuery{Actor: actor(u), TaskID: task.ID})
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
	}

	expectRollback(f.mock)
	_, err := f.svc.GetTask(ctx, service.GetTaskQuery{Actor: actor(eve), TaskID: task.ID})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	expectRollback(f.mock)
	_, err = f.svc.GetTask(ctx, service.GetTaskQuery{Actor: actor(eve), TaskID: uuid.New()})
	assert.ErrorIs(t, err, service.ErrNotFound, "a missing task is not found even for a stranger")
}

func TestGetTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("returns matching tasks with normalized paging", func(t *testing.T) {
		f := newTaskFixture(t)
		f.seedTask(t, f.alice, nil)
		f.seedTask(t, f.alice, f.bob)
		f.seedTask(t, f.bob, nil)
		expectCommit(f.mock)

		tasks, err := f.svc.GetTasks(ctx, service.GetTasksQuery{
			Actor:  actor(f.bob),
			Filter: store.TaskFilter{CreatorID: &f.alice.ID, Limit: 5000},
		})
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
		assert.Equal(t, store.MaxListLimit, f.tasks.lastList.Limit)
		assert.Equal(t, 0, f.tasks.lastList.Offset)
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		f := newTaskFixture(t)
		expectCommit(f.mock)

		tasks, err := f.svc.GetTasks(ctx, service.GetTasksQuery{Actor: actor(f.bob)})
		require.NoError(t, err)
		assert.Empty(t, tasks)
		assert.Equal(t, store.DefaultListLimit, f.tasks.lastList.Limit)
	})

	t.Run("invalid filter is rejected", func(t *testing.T) {
		f := newTaskFixture(t)

		filters := []store.TaskFilter{
			{Status: ptr(domain.TaskStatus("done"))},
			{Priority: ptr(domain.TaskPriority("urgent"))},
			{Offset: -1},
			{Limit: -5},
		}
		for _, filter := range filters {
			_, err := f.svc.GetTasks(ctx, service.GetTasksQuery{Actor: actor(f.bob), Filter: filter})
			assert.ErrorIs(t, err, service.ErrValidation)
		}
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.listErr = errors.New("timeout")
		expectRollback(f.mock)

		_, err := f.svc.GetTasks(ctx, service.GetTasksQuery{Actor: actor(f.bob)})
		var serviceErr *service.ServiceError
		assert.ErrorAs(t, err, &serviceErr)
	})
}

func TestProcessingLifecycle(t *testing.T) {
	ctx := context.Background()

	seedProcessing := func(t *testing.T, f *taskFixture, jobID string) *domain.Task {
		t.Helper()
		task := f.seedTask(t, f.alice, nil)
		require.NoError(t, task.SetProcessingJob(jobID))
		f.tasks.put(task)
		return task
	}

	t.Run("begin moves pending to in progress", func(t *testing.T) {
		f := newTaskFixture(t)
		task := seedProcessing(t, f, "job-7")
		expectCommit(f.mock)
		expectCommit(f.mock)

		started, err := f.svc.BeginProcessing(ctx, "job-7")
		require.NoError(t, err)
		assert.Equal(t, task.ID, started.ID)
		assert.Equal(t, domain.TaskStatusInProgress, f.tasks.get(task.ID).Status)

		// A retried attempt leaves the status alone.
		again, err := f.svc.BeginProcessing(ctx, "job-7")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, again.Status)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		f := newTaskFixture(t)
		expectRollback(f.mock)

		_, err := f.svc.BeginProcessing(ctx, "job-missing")
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("success completes and notifies creator", func(t *testing.T) {
		f := newTaskFixture(t)
		task := seedProcessing(t, f, "job-7")
		expectCommit(f.mock)

		done, err := f.svc.FinishProcessing(ctx, "job-7", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, done.Status)
		assert.NotNil(t, done.CompletedAt)
		assert.NoError(t, f.tasks.get(task.ID).Validate())

		sent := f.notifier.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, notify.KindCompleted, sent[0].Kind)
		assert.Equal(t, f.alice.ID, sent[0].RecipientID)
	})

	t.Run("failure marks failed and notifies creator", func(t *testing.T) {
		f := newTaskFixture(t)
		task := seedProcessing(t, f, "job-7")
		expectCommit(f.mock)

		failed, err := f.svc.FinishProcessing(ctx, "job-7", errors.New("worker crashed"))
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, failed.Status)
		assert.Nil(t, failed.CompletedAt)
		assert.Equal(t, domain.TaskStatusFailed, f.tasks.get(task.ID).Status)

		sent := f.notifier.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, notify.KindFailed, sent[0].Kind)
	})

	t.Run("settled task is left alone", func(t *testing.T) {
		f := newTaskFixture(t)
		task := seedProcessing(t, f, "job-7")
		task.Complete()
		f.tasks.put(task)
		expectCommit(f.mock)

		got, err := f.svc.FinishProcessing(ctx, "job-7", errors.New("late failure"))
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)
		assert.Zero(t, f.tasks.writes)
		assert.Empty(t, f.notifier.sent())
	})
}
