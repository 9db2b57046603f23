package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRedis(t *testing.T) asynq.RedisClientOpt {
	t.Helper()
	s := miniredis.RunT(t)
	return asynq.RedisClientOpt{Addr: s.Addr()}
}

func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) error {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			return errors.New("timeout")
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

// fakeLifecycle keeps one task per job ID in memory.
type fakeLifecycle struct {
	mu        sync.Mutex
	tasks     map[string]*domain.Task
	beginErr  error
	finishErr error
	began     int
	finished  []error
}

func newFakeLifecycle(t *testing.T, jobIDs ...string) *fakeLifecycle {
	t.Helper()
	l := &fakeLifecycle{tasks: make(map[string]*domain.Task)}
	for _, id := range jobIDs {
		l.add(t, id)
	}
	return l
}

func (l *fakeLifecycle) add(t *testing.T, jobID string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(uuid.New(), "process me", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, task.SetProcessingJob(jobID))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks[jobID] = task
	return task
}

func (l *fakeLifecycle) BeginProcessing(_ context.Context, jobID string) (*domain.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.began++
	if l.beginErr != nil {
		return nil, l.beginErr
	}
	task, ok := l.tasks[jobID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if task.Status == domain.TaskStatusPending {
		_ = task.UpdateStatus(domain.TaskStatusInProgress)
	}
	return task, nil
}

func (l *fakeLifecycle) FinishProcessing(_ context.Context, jobID string, failure error) (*domain.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, failure)
	if l.finishErr != nil {
		return nil, l.finishErr
	}
	task := l.tasks[jobID]
	if failure != nil {
		_ = task.UpdateStatus(domain.TaskStatusFailed)
	} else {
		task.Complete()
	}
	return task, nil
}

func (l *fakeLifecycle) status(jobID string) domain.TaskStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	if task, ok := l.tasks[jobID]; ok {
		return task.Status
	}
	return ""
}

func (l *fakeLifecycle) finishCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.finished)
}
