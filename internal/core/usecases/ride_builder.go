package usecases

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/pkg/geospatial"
)

// Identifiers of the synthetic point features appended to a ride track.
const (
	StartFeatureID = "start"
	EndFeatureID   = "end"
)

// RideTrack is a ride feature collection ready for storage.
type RideTrack struct {
	Collection *geojson.FeatureCollection
	Start      orb.Point
	End        orb.Point
	Distance   float64 // meters, measured before the start/end features were added
}

// BuildRideFeatureCollection appends "start" and "end" point features to a
// copy of fc. The distance is measured over fc itself so the synthetic
// points are never counted.
func BuildRideFeatureCollection(fc *geojson.FeatureCollection) (*RideTrack, error) {
	g := geospatial.CollectionGeometry(fc)

	start, ok := geospatial.StartPoint(g)
	if !ok {
		return nil, domain.ErrNoStartPoint
	}
	end, ok := geospatial.EndPoint(g)
	if !ok {
		// Unreachable once a start point exists; kept to mirror StartPoint.
		return nil, domain.ErrNoEndPoint
	}

	out := geojson.NewFeatureCollection()
	out.BBox = fc.BBox
	out.ExtraMembers = fc.ExtraMembers
	out.Features = append(out.Features, fc.Features...)
	out.Append(geospatial.NewPointFeature(StartFeatureID, start))
	out.Append(geospatial.NewPointFeature(EndFeatureID, end))
	if out.BBox == nil {
		if bbox := geospatial.BoundingBox(g); bbox != nil {
			out.BBox = geojson.BBox(bbox)
		}
	}

	return &RideTrack{
		Collection: out,
		Start:      start,
		End:        end,
		Distance:   geospatial.Distance(g),
	}, nil
}

// TrackGeometry returns the geometry of a stored ride collection without
// its synthetic start/end features.
func TrackGeometry(fc *geojson.FeatureCollection) orb.Collection {
	if fc == nil {
		return orb.Collection{}
	}
	track := make(orb.Collection, 0, len(fc.Features))
	for _, f := range fc.Features {
		if isEndpointFeature(f) {
			continue
		}
		track = append(track, geospatial.FeatureGeometry(f))
	}
	return track
}

func isEndpointFeature(f *geojson.Feature) bool {
	if f == nil {
		return false
	}
	id, ok := f.ID.(string)
	return ok && (id == StartFeatureID || id == EndFeatureID)
}
