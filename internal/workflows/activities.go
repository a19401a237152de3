package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/expedition/internal/core/domain"
)

// Resegmenter recomputes the ways of a stored ride.
type Resegmenter interface {
	Resegment(ctx context.Context, id int64) ([]domain.Way, error)
}

// RideActivities holds the activity implementations for ride reprocessing.
type RideActivities struct {
	Rides Resegmenter
}

// ResegmentRide looks up every track point again and replaces the stored
// ways. It returns the number of ways found.
func (a *RideActivities) ResegmentRide(ctx context.Context, rideID int64) (int, error) {
	ways, err := a.Rides.Resegment(ctx, rideID)
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted since the request was queued; retrying cannot help
		return 0, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("ride %d not found", rideID), "RideNotFound", err)
	}
	if err != nil {
		return 0, fmt.Errorf("resegment ride %d: %w", rideID, err)
	}
	slog.InfoContext(ctx, "ride resegmented", "ride_id", rideID, "ways", len(ways))
	return len(ways), nil
}
