package port

import (
	"context"

	"github.com/arazshah/callyou/internal/core/domain"
)

// UserRepository persists account rows. Implementations resolve the
// executor from the context so calls participate in an ambient transaction.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmailVerificationToken(ctx context.Context, token string) (*domain.User, error)
	GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int, error)
}

// UserFilter narrows List results. Zero values mean "no constraint".
type UserFilter struct {
	UserType *domain.UserType
	Status   *domain.UserStatus
	Search   string
	Limit    int
	Offset   int
}
