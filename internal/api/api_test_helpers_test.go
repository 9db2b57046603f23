package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	router http.Handler
	tasks  *mocks.TaskService
	users  *mocks.UserService
	jwt    *mocks.MockJWTService
}

// newTestServer wires the real routes and auth middleware to mock services.
// Access tokens have the form "token-<user id>".
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		tasks: new(mocks.TaskService),
		users: new(mocks.UserService),
		jwt: &mocks.MockJWTService{
			Token:        "new-access",
			RefreshToken: "new-refresh",
		},
	}
	s.jwt.ValidateTokenFn = func(_ context.Context, token string) (*auth.Claims, error) {
		id, err := uuid.Parse(strings.TrimPrefix(token, "token-"))
		if err != nil {
			return nil, auth.ErrInvalidToken
		}
		return &auth.Claims{UserID: id, TokenType: auth.TokenTypeAccess}, nil
	}

	log := discardLogger()
	authHandler := NewAuthHandler(s.users, s.jwt, config.AuthConfig{TokenLifetimeMinutes: 60}, log)
	authHandler.now = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	RegisterRoutes(r, Handlers{
		Auth:  authHandler,
		Tasks: NewTaskHandler(s.tasks, s.users, log),
		Users: NewUserHandler(s.users, log),
	}, middleware.NewAuthMiddleware(s.jwt, log).Authenticate, nil)
	s.router = r

	t.Cleanup(func() {
		s.tasks.AssertExpectations(t)
		s.users.AssertExpectations(t)
	})
	return s
}

func tokenFor(u *domain.User) string {
	return "token-" + u.ID.String()
}

// knows makes u resolvable as the current user.
func (s *testServer) knows(users ...*domain.User) {
	for _, u := range users {
		s.users.On("GetUser", mock.Anything, u.ID).Return(u, nil).Maybe()
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newTestUser(email string, role domain.Role) *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: "$2a$04$placeholderplaceholderplacehold",
		FirstName:      "Test",
		LastName:       "User",
		Gender:         domain.GenderFemale,
		Role:           role,
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
}

func newTestTask(t *testing.T, creator *domain.User) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(creator.ID, "Write report", "quarterly", domain.TaskPriorityHigh, nil)
	require.NoError(t, err)
	return task
}
