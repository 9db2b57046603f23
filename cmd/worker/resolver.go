package main

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/notify"
	"github.com/phrazzld/taskflow-api/internal/store"
)

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// userResolver resolves notification recipients from the user store.
type userResolver struct {
	users userGetter
}

var _ notify.RecipientResolver = (*userResolver)(nil)

func newUserResolver(users userGetter) *userResolver {
	return &userResolver{users: users}
}

// Resolve implements notify.RecipientResolver.
func (r *userResolver) Resolve(ctx context.Context, userID uuid.UUID) (notify.Recipient, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return notify.Recipient{}, notify.ErrUnknownRecipient
		}
		return notify.Recipient{}, err
	}

	name := strings.TrimSpace(strings.Join([]string{user.FirstName, user.LastName}, " "))
	return notify.Recipient{UserID: user.ID, Email: user.Email, Name: name}, nil
}
