package domain

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Ride is an imported GPS track together with everything derived from it.
type Ride struct {
	ID            int64                      `json:"id"`
	Name          string                     `json:"name"`
	GeoJSON       *geojson.FeatureCollection `json:"geo_json"`
	TotalDistance float64                    `json:"total_distance"` // meters
	Ways          []Way                      `json:"ways"`
	StartPoint    orb.Point                  `json:"start_point"`
	EndPoint      orb.Point                  `json:"end_point"`
	StartAddress  *Address                   `json:"start_address,omitempty"`
	EndAddress    *Address                   `json:"end_address,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`

	// Computed per request when an origin is supplied.
	TimeFromOriginToStart *int64             `json:"time_from_origin_to_start,omitempty"` // seconds
	TimeFromEndToOrigin   *int64             `json:"time_from_end_to_origin,omitempty"`   // seconds
	SurfaceComposition    map[string]float64 `json:"surface_composition,omitempty"`
}

// RideSummary is the list view of a ride; it never carries the track or ways.
type RideSummary struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TotalDistance float64   `json:"total_distance"`
	StartPoint    orb.Point `json:"start_point"`
	EndPoint      orb.Point `json:"end_point"`
	StartAddress  *Address  `json:"start_address,omitempty"`
	EndAddress    *Address  `json:"end_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	TimeFromOriginToStart *int64 `json:"time_from_origin_to_start,omitempty"`
	TimeFromEndToOrigin   *int64 `json:"time_from_end_to_origin,omitempty"`
}

// Summary returns the list view of r.
func (r *Ride) Summary() RideSummary {
	return RideSummary{
		ID:                    r.ID,
		Name:                  r.Name,
		TotalDistance:         r.TotalDistance,
		StartPoint:            r.StartPoint,
		EndPoint:              r.EndPoint,
		StartAddress:          r.StartAddress,
		EndAddress:            r.EndAddress,
		CreatedAt:             r.CreatedAt,
		TimeFromOriginToStart: r.TimeFromOriginToStart,
		TimeFromEndToOrigin:   r.TimeFromEndToOrigin,
	}
}

// Way is a run of track points attributed to the same named road.
type Way struct {
	Key      string     `json:"key"`
	Name     string     `json:"name,omitempty"`
	Seq      int        `json:"seq"` // index of the first contributing point
	Distance float64    `json:"distance"`
	Surface  string     `json:"surface,omitempty"`
	Points   []WayPoint `json:"points"`
}

// WayPoint is a track point with its index in the flattened point stream.
type WayPoint struct {
	Seq   int       `json:"seq"`
	Point orb.Point `json:"point"`
}
