package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/notify"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMockDB returns a sqlmock database whose expectations are verified at cleanup.
// Stores in these tests are in-memory fakes, so the mock only sees transaction control.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		c.AssigneeID = &id
	}
	if t.ProcessingJobID != nil {
		job := *t.ProcessingJobID
		c.ProcessingJobID = &job
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// memTaskStore is an in-memory store.TaskStore. Reads and writes copy, so callers
// never share a *domain.Task with the store.
type memTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	writes    int
	createErr error
	updateErr error
	listErr   error
	lastList  store.TaskFilter
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *memTaskStore) put(t *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = copyTask(t)
}

func (s *memTaskStore) get(id uuid.UUID) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		return copyTask(t)
	}
	return nil
}

func (s *memTaskStore) Create(_ context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.writes++
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (s *memTaskStore) GetByProcessingJobID(_ context.Context, jobID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ProcessingJobID != nil && *t.ProcessingJobID == jobID {
			return copyTask(t), nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (s *memTaskStore) List(_ context.Context, f store.TaskFilter) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = f
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []*domain.Task{}
	for _, t := range s.tasks {
		if f.CreatorID != nil && t.CreatorID != *f.CreatorID {
			continue
		}
		if f.AssigneeID != nil && !t.IsAssignee(*f.AssigneeID) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		out = append(out, copyTask(t))
	}
	return out, nil
}

func (s *memTaskStore) Update(_ context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.tasks[t.ID]; !ok {
		return store.ErrTaskNotFound
	}
	s.writes++
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	s.writes++
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) DeleteByCreator(_ context.Context, creatorID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tasks {
		if t.CreatorID == creatorID {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

func (s *memTaskStore) UnassignUser(_ context.Context, assigneeID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tasks {
		if t.IsAssignee(assigneeID) {
			t.AssigneeID = nil
			n++
		}
	}
	return n, nil
}

func (s *memTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

// memUserStore is an in-memory store.UserStore.
type memUserStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*domain.User
	writes    int
	getErr    error
	createErr error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memUserStore) put(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
}

func (s *memUserStore) get(id uuid.UUID) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		c := *u
		return &c
	}
	return nil
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrEmailExists
		}
	}
	s.writes++
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) List(_ context.Context, offset, limit int) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.User{}
	for _, u := range s.users {
		c := *u
		out = append(out, &c)
	}
	if offset >= len(out) {
		return []*domain.User{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memUserStore) Update(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrUserNotFound
	}
	s.writes++
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	s.writes++
	delete(s.users, id)
	return nil
}

func (s *memUserStore) WithTx(*sql.Tx) store.UserStore { return s }

// fakeProcessing records processing submissions.
type fakeProcessing struct {
	jobID     string
	err       error
	submitted []uuid.UUID
	params    []map[string]any
}

func (p *fakeProcessing) SubmitProcessing(_ context.Context, taskID uuid.UUID, params map[string]any) (string, error) {
	p.submitted = append(p.submitted, taskID)
	p.params = append(p.params, params)
	if p.err != nil {
		return "", p.err
	}
	return p.jobID, nil
}

// fakeNotifier records submitted notifications.
type fakeNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
	err error
}

func (n *fakeNotifier) Notify(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, msg)
	return n.err
}

func (n *fakeNotifier) sent() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.got...)
}

func newUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "correct-horse-battery", domain.UserProfile{
		FirstName: "Test",
		LastName:  "User",
		Gender:    domain.GenderFemale,
		Role:      role,
	})
	require.NoError(t, err)
	u.Password = ""
	u.HashedPassword = "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold"
	return u
}
