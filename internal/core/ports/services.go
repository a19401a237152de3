package ports

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/expedition/internal/core/domain"
)

// PlaceLookup classifies a single coordinate against a place database.
type PlaceLookup interface {
	Lookup(ctx context.Context, p orb.Point) (*domain.Classification, error)
}

// Geocoder resolves the address of a single coordinate.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p orb.Point) (*domain.Address, error)
}

// TravelTimer estimates travel time between two coordinates.
type TravelTimer interface {
	TravelTime(ctx context.Context, from, to orb.Point) (time.Duration, error)
}

// EventPublisher publishes ride events to a message broker.
type EventPublisher interface {
	PublishRideCreated(ctx context.Context, ride *domain.RideSummary) error
	PublishRideDeleted(ctx context.Context, id int64) error
	PublishWaysUpdated(ctx context.Context, id int64, ways []domain.Way) error
	PublishReprocessRequest(ctx context.Context, id int64) error
}

// EventSubscriber subscribes to ride events from a message broker.
type EventSubscriber interface {
	SubscribeReprocessRequests(ctx context.Context, handler func(ctx context.Context, rideID int64) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
