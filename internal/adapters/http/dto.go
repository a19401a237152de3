package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/core/usecases"
	"github.com/samirrijal/expedition/internal/pkg/geospatial"
)

// RideSummaryResponse is a ride in list responses.
type RideSummaryResponse struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name"`
	TotalDistance         float64         `json:"total_distance"`
	StartPoint            orb.Point       `json:"start_point"`
	EndPoint              orb.Point       `json:"end_point"`
	StartAddress          *domain.Address `json:"start_address,omitempty"`
	EndAddress            *domain.Address `json:"end_address,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	TimeFromOriginToStart *int64          `json:"time_from_origin_to_start,omitempty"`
	TimeFromEndToOrigin   *int64          `json:"time_from_end_to_origin,omitempty"`
}

// RideResponse is a single ride with its track and ways.
type RideResponse struct {
	RideSummaryResponse
	GeoJSON            *geojson.FeatureCollection `json:"geo_json"`
	Polyline           string                     `json:"polyline"`
	Ways               []WayResponse              `json:"ways"`
	SurfaceComposition map[string]float64         `json:"surface_composition,omitempty"`
}

// WayResponse is a way with an encoded polyline of its points.
type WayResponse struct {
	Key      string            `json:"key"`
	Name     string            `json:"name,omitempty"`
	Seq      int               `json:"seq"`
	Distance float64           `json:"distance"`
	Surface  string            `json:"surface,omitempty"`
	Polyline string            `json:"polyline"`
	Points   []domain.WayPoint `json:"points"`
}

func newRideSummaryResponse(s domain.RideSummary) RideSummaryResponse {
	return RideSummaryResponse{
		ID:                    s.ID,
		Name:                  s.Name,
		TotalDistance:         s.TotalDistance,
		StartPoint:            s.StartPoint,
		EndPoint:              s.EndPoint,
		StartAddress:          s.StartAddress,
		EndAddress:            s.EndAddress,
		CreatedAt:             s.CreatedAt,
		TimeFromOriginToStart: s.TimeFromOriginToStart,
		TimeFromEndToOrigin:   s.TimeFromEndToOrigin,
	}
}

func newRideResponse(r *domain.Ride) RideResponse {
	ways := make([]WayResponse, 0, len(r.Ways))
	for _, w := range r.Ways {
		coords := make([][]float64, 0, len(w.Points))
		for _, wp := range w.Points {
			coords = append(coords, []float64{wp.Point.Lat(), wp.Point.Lon()})
		}
		ways = append(ways, WayResponse{
			Key:      w.Key,
			Name:     w.Name,
			Seq:      w.Seq,
			Distance: w.Distance,
			Surface:  w.Surface,
			Polyline: string(polyline.EncodeCoords(coords)),
			Points:   w.Points,
		})
	}

	return RideResponse{
		RideSummaryResponse: newRideSummaryResponse(r.Summary()),
		GeoJSON:             r.GeoJSON,
		Polyline:            trackPolyline(r.GeoJSON),
		Ways:                ways,
		SurfaceComposition:  r.SurfaceComposition,
	}
}

// trackPolyline encodes every track point in order, start and end markers
// excluded.
func trackPolyline(fc *geojson.FeatureCollection) string {
	var coords [][]float64
	for p := range geospatial.Points(usecases.TrackGeometry(fc)) {
		coords = append(coords, []float64{p.Lat(), p.Lon()})
	}
	return string(polyline.EncodeCoords(coords))
}

// CreateRideRequest is the JSON form of a ride upload.
type CreateRideRequest struct {
	Name    string          `json:"name"`
	GeoJSON json.RawMessage `json:"geo_json"`
}

var errNoGeoJSON = errors.New("geo_json is required")

// decodeGeoJSON accepts a FeatureCollection, a single Feature or a bare
// geometry and returns it as a FeatureCollection.
func decodeGeoJSON(raw json.RawMessage) (*geojson.FeatureCollection, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errNoGeoJSON
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("geo_json: %w", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("geo_json: %w", err)
		}
		return fc, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("geo_json: %w", err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "":
		return nil, errors.New("geo_json: missing type")
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("geo_json: %w", err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geospatial.NewTrackFeature(g.Geometry()))
		return fc, nil
	}
}
