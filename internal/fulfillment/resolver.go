package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type UserLookup interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

// UserResolver maps a notification to an account. The identity hint is the
// user id echoed back from checkout and wins over the email match.
type UserResolver struct {
	users  UserLookup
	logger *slog.Logger
}

func NewUserResolver(users UserLookup, logger *slog.Logger) *UserResolver {
	return &UserResolver{users: users, logger: logger}
}

// Resolve returns "" with a nil error when neither the hint nor the email
// matches an account.
func (r *UserResolver) Resolve(ctx context.Context, identityHint, customerEmail string) (string, error) {
	if identityHint != "" {
		profile, err := r.users.FindByID(ctx, identityHint)
		if err != nil {
			return "", fmt.Errorf("lookup user by id: %w", err)
		}
		if profile != nil {
			return profile.ID, nil
		}
		r.logger.Warn("identity hint matched no account, falling back to email", "identity_hint", identityHint)
	}

	if customerEmail != "" {
		profile, err := r.users.FindByEmail(ctx, customerEmail)
		if err != nil {
			return "", fmt.Errorf("lookup user by email: %w", err)
		}
		if profile != nil {
			return profile.ID, nil
		}
	}

	return "", nil
}
