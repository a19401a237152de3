package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DistanceProperty is the feature property holding a measured length in meters.
const DistanceProperty = "distance"

// NewTrackFeature wraps a track geometry in a feature carrying its bounding
// box and measured distance.
func NewTrackFeature(g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	if bbox := BoundingBox(g); bbox != nil {
		f.BBox = geojson.BBox(bbox)
	}
	f.Properties[DistanceProperty] = Distance(g)
	return f
}

// NewPointFeature builds a single point feature with a string identifier.
func NewPointFeature(id string, p orb.Point) *geojson.Feature {
	f := geojson.NewFeature(p)
	f.ID = id
	return f
}

// CollectionBoundingBox returns the bounding box over all features.
func CollectionBoundingBox(fc *geojson.FeatureCollection) []float64 {
	return BoundingBox(CollectionGeometry(fc))
}
