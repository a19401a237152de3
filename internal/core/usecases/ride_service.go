package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/pkg/geospatial"
	"github.com/samirrijal/expedition/internal/pkg/metrics"
)

const (
	// DetailWayLimit is the number of ways returned with a single ride.
	DetailWayLimit = 5

	travelConcurrency = 10
)

// RideService handles ride ingestion and retrieval.
type RideService struct {
	rides     ports.RideRepository
	segmenter *WaySegmenter
	geocoder  ports.Geocoder
	travel    ports.TravelTimer
	events    ports.EventPublisher
}

// NewRideService creates a new RideService. travel and events may be nil.
func NewRideService(
	rides ports.RideRepository,
	segmenter *WaySegmenter,
	geocoder ports.Geocoder,
	travel ports.TravelTimer,
	events ports.EventPublisher,
) *RideService {
	return &RideService{
		rides:     rides,
		segmenter: segmenter,
		geocoder:  geocoder,
		travel:    travel,
		events:    events,
	}
}

// Create enriches a track and stores it as a ride. The start and end
// addresses and the ways are resolved concurrently; any failure fails the
// whole ride.
func (s *RideService) Create(ctx context.Context, name string, fc *geojson.FeatureCollection) (*domain.Ride, error) {
	ride, err := s.create(ctx, name, fc)
	if err != nil {
		metrics.RidesIngested.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.RidesIngested.WithLabelValues("ok").Inc()
	return ride, nil
}

func (s *RideService) create(ctx context.Context, name string, fc *geojson.FeatureCollection) (*domain.Ride, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRide)
	}
	if fc == nil || len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRide, domain.ErrEmptyTrack)
	}
	geom := geospatial.CollectionGeometry(fc)
	if err := geospatial.Validate(geom); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRide, err)
	}

	track, err := BuildRideFeatureCollection(fc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRide, err)
	}

	ride := &domain.Ride{
		Name:          name,
		GeoJSON:       track.Collection,
		TotalDistance: track.Distance,
		StartPoint:    track.Start,
		EndPoint:      track.End,
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.geocoder != nil {
		g.Go(func() error {
			addr, err := s.geocoder.ReverseGeocode(gctx, track.Start)
			if err != nil {
				return fmt.Errorf("geocode start: %w", err)
			}
			ride.StartAddress = addr
			return nil
		})
		g.Go(func() error {
			addr, err := s.geocoder.ReverseGeocode(gctx, track.End)
			if err != nil {
				return fmt.Errorf("geocode end: %w", err)
			}
			ride.EndAddress = addr
			return nil
		})
	}
	g.Go(func() error {
		ways, err := s.segmenter.Segment(gctx, geospatial.IndexedPoints(geom))
		if err != nil {
			return fmt.Errorf("segment ways: %w", err)
		}
		ride.Ways = ways
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("store ride: %w", err)
	}

	slog.InfoContext(ctx, "ride created",
		"ride_id", ride.ID, "distance_m", ride.TotalDistance, "ways", len(ride.Ways))

	if s.events != nil {
		summary := ride.Summary()
		if err := s.events.PublishRideCreated(ctx, &summary); err != nil {
			// Best-effort; the ride is already stored
			slog.WarnContext(ctx, "publish ride created", "ride_id", ride.ID, "error", err)
		}
	}
	return ride, nil
}

// GetByID returns a ride with its first DetailWayLimit ways. When origin is
// set, travel times between origin and the ride ends are attached.
func (s *RideService) GetByID(ctx context.Context, id int64, origin *orb.Point) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}

	ride.SurfaceComposition = SurfaceComposition(ride.Ways)
	if len(ride.Ways) > DetailWayLimit {
		ride.Ways = ride.Ways[:DetailWayLimit]
	}

	if origin != nil {
		ride.TimeFromOriginToStart, ride.TimeFromEndToOrigin = s.travelTimes(ctx, *origin, ride.StartPoint, ride.EndPoint)
	}
	return ride, nil
}

// List returns a page of rides and the total count.
func (s *RideService) List(ctx context.Context, offset, limit int, origin *orb.Point) ([]domain.RideSummary, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rides, total, err := s.rides.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	if origin == nil || s.travel == nil {
		return rides, total, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(travelConcurrency)
	for i := range rides {
		g.Go(func() error {
			r := &rides[i]
			r.TimeFromOriginToStart, r.TimeFromEndToOrigin = s.travelTimes(gctx, *origin, r.StartPoint, r.EndPoint)
			return nil
		})
	}
	// Travel-time failures are soft and every goroutine returns nil.
	_ = g.Wait()
	return rides, total, nil
}

// travelTimes returns seconds from origin to start and from end back to
// origin. Routing failures leave the value unset.
func (s *RideService) travelTimes(ctx context.Context, origin, start, end orb.Point) (*int64, *int64) {
	if s.travel == nil {
		return nil, nil
	}
	leg := func(from, to orb.Point) *int64 {
		d, err := s.travel.TravelTime(ctx, from, to)
		if err != nil {
			slog.WarnContext(ctx, "travel time unavailable", "error", err)
			return nil
		}
		secs := int64(d / time.Second)
		return &secs
	}
	return leg(origin, start), leg(end, origin)
}

// Delete removes a ride.
func (s *RideService) Delete(ctx context.Context, id int64) error {
	if err := s.rides.Delete(ctx, id); err != nil {
		return err
	}
	if s.events != nil {
		if err := s.events.PublishRideDeleted(ctx, id); err != nil {
			slog.WarnContext(ctx, "publish ride deleted", "ride_id", id, "error", err)
		}
	}
	return nil
}

// ErrReprocessUnavailable is returned when no event publisher is configured.
var ErrReprocessUnavailable = errors.New("reprocessing is not available")

// RequestReprocess asks the enricher to segment a stored ride again.
func (s *RideService) RequestReprocess(ctx context.Context, id int64) error {
	if s.events == nil {
		return ErrReprocessUnavailable
	}
	if _, err := s.rides.GetByID(ctx, id, 1); err != nil {
		return err
	}
	return s.events.PublishReprocessRequest(ctx, id)
}

// Resegment recomputes and stores the ways of a stored ride.
func (s *RideService) Resegment(ctx context.Context, id int64) ([]domain.Way, error) {
	ride, err := s.rides.GetByID(ctx, id, 1)
	if err != nil {
		return nil, err
	}

	ways, err := s.segmenter.Segment(ctx, geospatial.IndexedPoints(TrackGeometry(ride.GeoJSON)))
	if err != nil {
		return nil, fmt.Errorf("segment ways: %w", err)
	}
	if err := s.rides.UpdateWays(ctx, id, ways); err != nil {
		return nil, fmt.Errorf("update ways: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishWaysUpdated(ctx, id, ways); err != nil {
			slog.WarnContext(ctx, "publish ways updated", "ride_id", id, "error", err)
		}
	}
	return ways, nil
}
