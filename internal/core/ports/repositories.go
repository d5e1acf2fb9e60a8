package ports

import (
	"context"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// PointRepository reads and writes perspective pins.
type PointRepository interface {
	// List returns every pin, newest first.
	List(ctx context.Context) ([]domain.GeoPoint, error)
	GetByID(ctx context.Context, id string) (*domain.GeoPoint, error)
	UpsertBatch(ctx context.Context, points []domain.GeoPoint) error
}
