package ports

import (
	"context"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// EventPublisher publishes globe events to a message broker.
type EventPublisher interface {
	PublishNavigate(ctx context.Context, res domain.SelectionResult) error
	PublishDrilldown(ctx context.Context, res domain.SelectionResult) error
	PublishRefreshed(ctx context.Context, version uint64, count int) error
	PublishSaved(ctx context.Context, ids []string) error
}

// EventSubscriber subscribes to changes of the underlying perspectives.
type EventSubscriber interface {
	SubscribePointChanges(ctx context.Context, handler func(ctx context.Context, change domain.PointChange) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
