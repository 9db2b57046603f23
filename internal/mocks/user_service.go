package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// UserService is a testify mock of service.UserService.
type UserService struct {
	mock.Mock
}

var _ service.UserService = (*UserService)(nil)

func (m *UserService) user(args mock.Arguments) (*domain.User, error) {
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateUser mocks service.UserService.CreateUser.
func (m *UserService) CreateUser(ctx context.Context, cmd service.CreateUserCommand) (*domain.User, error) {
	return m.user(m.Called(ctx, cmd))
}

// GetUser mocks service.UserService.GetUser.
func (m *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return m.user(m.Called(ctx, userID))
}

// ListUsers mocks service.UserService.ListUsers.
func (m *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, offset, limit)
	if users, ok := args.Get(0).([]*domain.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateUser mocks service.UserService.UpdateUser.
func (m *UserService) UpdateUser(ctx context.Context, cmd service.UpdateUserCommand) (*domain.User, error) {
	return m.user(m.Called(ctx, cmd))
}

// DeleteUser mocks service.UserService.DeleteUser.
func (m *UserService) DeleteUser(ctx context.Context, actor service.Actor, userID uuid.UUID) error {
	return m.Called(ctx, actor, userID).Error(0)
}

// Authenticate mocks service.UserService.Authenticate.
func (m *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	return m.user(m.Called(ctx, email, password))
}
