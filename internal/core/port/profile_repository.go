package port

import (
	"context"

	"github.com/arazshah/callyou/internal/core/domain"
)

// ProfileRepository persists extended profile rows keyed by user id.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.UserProfile) error
	GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error)
	Update(ctx context.Context, profile *domain.UserProfile) error
}
