package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// UserService provides user-related operations
type UserService interface {
	// CreateUser registers a user. Returns ErrDuplicateEmail if the email is taken.
	CreateUser(ctx context.Context, cmd CreateUserCommand) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// ListUsers returns a page of users ordered by creation time.
	ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, error)

	// UpdateUser applies a partial update. Returns ErrDuplicateEmail if the new
	// email belongs to a different user.
	UpdateUser(ctx context.Context, cmd UpdateUserCommand) (*domain.User, error)

	// DeleteUser deletes a user together with the tasks they created, and unassigns
	// them from tasks created by others. Any authenticated actor may delete any user.
	DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error

	// Authenticate returns the user owning email if password matches.
	// Returns ErrInvalidCredentials otherwise, whether or not the email exists.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// userServiceImpl implements the UserService interface
type userServiceImpl struct {
	db     *sql.DB
	users  store.UserStore
	tasks  store.TaskStore
	hasher auth.PasswordHasher
	logger *slog.Logger

	// dummyHash is compared against when the email is unknown, so a failed login
	// costs one hash comparison whether or not the account exists.
	dummyHash string
}

// NewUserService creates a new UserService
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	db *sql.DB,
	users store.UserStore,
	tasks store.TaskStore,
	hasher auth.PasswordHasher,
	log *slog.Logger,
) (UserService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", nil)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", nil)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", nil)
	}
	if hasher == nil {
		return nil, domain.NewValidationError("hasher", "cannot be nil", nil)
	}
	if log == nil {
		log = slog.Default()
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	return &userServiceImpl{
		db:        db,
		users:     users,
		tasks:     tasks,
		hasher:    hasher,
		logger:    log.With(slog.String("component", "user_service")),
		dummyHash: dummyHash,
	}, nil
}

// CreateUser implements UserService.CreateUser
func (s *userServiceImpl) CreateUser(ctx context.Context, cmd CreateUserCommand) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(cmd.Email, cmd.Password, cmd.Profile)
	if err != nil {
		log.Debug("invalid user", slog.String("error", err.Error()))
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		if _, err := txUsers.GetByEmail(ctx, user.Email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return err
		}

		if err := s.setPassword(user); err != nil {
			return err
		}
		return txUsers.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			log.Debug("attempted to create user with existing email")
		} else {
			log.Error("failed to create user", slog.String("error", err.Error()))
		}
		return nil, wrap("create user", "could not create user", err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return user, nil
}

// GetUser implements UserService.GetUser
func (s *userServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		user, err = s.users.WithTx(tx).GetByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("user not found")
		} else {
			log.Error("failed to retrieve user", slog.String("error", err.Error()))
		}
		return nil, wrap("get user", "could not retrieve user", err)
	}
	return user, nil
}

// ListUsers implements UserService.ListUsers
func (s *userServiceImpl) ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "cannot be negative", nil)
	}
	offset, limit = store.NormalizePage(offset, limit)

	var users []*domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		users, err = s.users.WithTx(tx).List(ctx, offset, limit)
		return err
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list users", slog.String("error", err.Error()))
		return nil, wrap("list users", "could not list users", err)
	}
	return users, nil
}

// UpdateUser implements UserService.UpdateUser
func (s *userServiceImpl) UpdateUser(ctx context.Context, cmd UpdateUserCommand) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", cmd.UserID.String()))

	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)
		current, err := txUsers.GetByID(ctx, cmd.UserID)
		if err != nil {
			return err
		}

		// Only an email held by a different user collides.
		if cmd.Email != nil && strings.TrimSpace(*cmd.Email) != current.Email {
			other, err := txUsers.GetByEmail(ctx, strings.TrimSpace(*cmd.Email))
			switch {
			case err == nil && other.ID != current.ID:
				return ErrDuplicateEmail
			case err != nil && !errors.Is(err, store.ErrUserNotFound):
				return err
			}
		}

		if err := applyUserUpdate(current, cmd); err != nil {
			return err
		}
		if current.Password != "" {
			if err := s.setPassword(current); err != nil {
				return err
			}
		}

		if err := txUsers.Update(ctx, current); err != nil {
			return err
		}
		user = current
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			log.Debug("attempted to update to an existing email")
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
			log.Debug("user update rejected", slog.String("error", err.Error()))
		default:
			log.Error("failed to update user", slog.String("error", err.Error()))
		}
		return nil, wrap("update user", "could not update user", err)
	}

	log.Info("user updated")
	return user, nil
}

// DeleteUser implements UserService.DeleteUser
func (s *userServiceImpl) DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("actor_id", actor.UserID.String()),
		slog.String("user_id", userID.String()),
	)

	var deleted, unassigned int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)
		txTasks := s.tasks.WithTx(tx)

		if _, err := txUsers.GetByID(ctx, userID); err != nil {
			return err
		}

		var err error
		if deleted, err = txTasks.DeleteByCreator(ctx, userID); err != nil {
			return err
		}
		if unassigned, err = txTasks.UnassignUser(ctx, userID); err != nil {
			return err
		}
		return txUsers.Delete(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("user to delete not found")
		} else {
			log.Error("failed to delete user", slog.String("error", err.Error()))
		}
		return wrap("delete user", "could not delete user", err)
	}

	log.Info("user deleted",
		slog.Int64("tasks_deleted", deleted),
		slog.Int64("tasks_unassigned", unassigned))
	return nil
}

// Authenticate implements UserService.Authenticate
func (s *userServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	email = strings.TrimSpace(email)

	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		user, err = s.users.WithTx(tx).GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Error("failed to look up user for authentication", slog.String("error", err.Error()))
			return nil, wrap("authenticate", "could not look up user", err)
		}
		_ = s.hasher.Compare(s.dummyHash, password)
		log.Debug("authentication failed")
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		log.Debug("authentication failed", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// setPassword hashes the plaintext password and clears it from the user.
func (s *userServiceImpl) setPassword(user *domain.User) error {
	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return err
	}
	user.HashedPassword = hashed
	user.Password = ""
	return nil
}

// applyUserUpdate copies the provided fields onto user and validates the result.
func applyUserUpdate(user *domain.User, cmd UpdateUserCommand) error {
	if cmd.Password != nil {
		if *cmd.Password == "" {
			return domain.ErrPasswordTooShort
		}
		user.Password = *cmd.Password
	}
	if cmd.Email != nil {
		user.Email = strings.TrimSpace(*cmd.Email)
	}
	if cmd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*cmd.FirstName)
	}
	if cmd.LastName != nil {
		user.LastName = strings.TrimSpace(*cmd.LastName)
	}
	if cmd.MiddleName != nil {
		user.MiddleName = strings.TrimSpace(*cmd.MiddleName)
	}
	if cmd.Gender != nil {
		user.Gender = *cmd.Gender
	}
	if cmd.Role != nil {
		user.Role = *cmd.Role
	}
	user.UpdatedAt = time.Now().UTC()
	return user.Validate()
}
