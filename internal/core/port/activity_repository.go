package port

import (
	"context"

	"github.com/arazshah/callyou/internal/core/domain"
)

// ActivityRepository appends audit records. Writes happen inside the same
// transaction as the change they record so the audit trail cannot drift.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.ActivityLog, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByUserAndAction(ctx context.Context, userID, action string) (int, error)
}
