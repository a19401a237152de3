package ports

import (
	"context"

	"github.com/samirrijal/expedition/internal/core/domain"
)

// RideRepository persists rides.
type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	// GetByID returns a ride with at most wayLimit ways (all when wayLimit <= 0).
	GetByID(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error)
	List(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error)
	UpdateWays(ctx context.Context, id int64, ways []domain.Way) error
	Delete(ctx context.Context, id int64) error
}
