package port

import (
	"context"

	"github.com/arazshah/callyou/internal/core/domain"
)

// EventPublisher emits account lifecycle events. Publishing is best effort
// and must never fail the request that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.UserEvent)
	Close() error
}
