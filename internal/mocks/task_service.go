package mocks

import (
	"context"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// TaskService is a testify mock of service.TaskService.
type TaskService struct {
	mock.Mock
}

var _ service.TaskService = (*TaskService)(nil)

func (m *TaskService) task(args mock.Arguments) (*domain.Task, error) {
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateTask mocks service.TaskService.CreateTask.
func (m *TaskService) CreateTask(ctx context.Context, cmd service.CreateTaskCommand) (*domain.Task, error) {
	return m.task(m.Called(ctx, cmd))
}

// UpdateTask mocks service.TaskService.UpdateTask.
func (m *TaskService) UpdateTask(ctx context.Context, cmd service.UpdateTaskCommand) (*domain.Task, error) {
	return m.task(m.Called(ctx, cmd))
}

// DeleteTask mocks service.TaskService.DeleteTask.
func (m *TaskService) DeleteTask(ctx context.Context, cmd service.DeleteTaskCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

// AssignTask mocks service.TaskService.AssignTask.
func (m *TaskService) AssignTask(ctx context.Context, cmd service.AssignTaskCommand) (*domain.Task, error) {
	return m.task(m.Called(ctx, cmd))
}

// CompleteTask mocks service.TaskService.CompleteTask.
func (m *TaskService) CompleteTask(ctx context.Context, cmd service.CompleteTaskCommand) (*domain.Task, error) {
	return m.task(m.Called(ctx, cmd))
}

// GetTask mocks service.TaskService.GetTask.
func (m *TaskService) GetTask(ctx context.Context, q service.GetTaskQuery) (*domain.Task, error) {
	return m.task(m.Called(ctx, q))
}

// GetTasks mocks service.TaskService.GetTasks.
func (m *TaskService) GetTasks(ctx context.Context, q service.GetTasksQuery) ([]*domain.Task, error) {
	args := m.Called(ctx, q)
	if tasks, ok := args.Get(0).([]*domain.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

// BeginProcessing mocks service.TaskService.BeginProcessing.
func (m *TaskService) BeginProcessing(ctx context.Context, jobID string) (*domain.Task, error) {
	return m.task(m.Called(ctx, jobID))
}

// FinishProcessing mocks service.TaskService.FinishProcessing.
func (m *TaskService) FinishProcessing(ctx context.Context, jobID string, failure error) (*domain.Task, error) {
	return m.task(m.Called(ctx, jobID, failure))
}
