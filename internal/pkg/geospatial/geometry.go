package geospatial

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrMalformedGeometry is returned when a coordinate is not a usable
// longitude/latitude pair.
var ErrMalformedGeometry = errors.New("malformed geometry")

// FeatureGeometry returns the geometry of a feature, or an empty collection
// when the feature carries none.
func FeatureGeometry(f *geojson.Feature) orb.Geometry {
	if f == nil || f.Geometry == nil {
		return orb.Collection{}
	}
	return f.Geometry
}

// CollectionGeometry flattens a feature collection into a geometry
// collection with one child per feature, in feature order.
func CollectionGeometry(fc *geojson.FeatureCollection) orb.Collection {
	if fc == nil {
		return orb.Collection{}
	}
	c := make(orb.Collection, 0, len(fc.Features))
	for _, f := range fc.Features {
		c = append(c, FeatureGeometry(f))
	}
	return c
}

// Points yields every coordinate of a traversable geometry depth-first in
// list order. Polygons and multipolygons contribute nothing.
func Points(g orb.Geometry) iter.Seq[orb.Point] {
	return func(yield func(orb.Point) bool) {
		walk(g, false, yield)
	}
}

// IndexedPoints pairs the Points sequence with a 0-based sequence index.
func IndexedPoints(g orb.Geometry) iter.Seq2[int, orb.Point] {
	return func(yield func(int, orb.Point) bool) {
		i := 0
		for p := range Points(g) {
			if !yield(i, p) {
				return
			}
			i++
		}
	}
}

// walk visits coordinates, including polygon rings when areal is set.
// It returns false once yield asks to stop.
func walk(g orb.Geometry, areal bool, yield func(orb.Point) bool) bool {
	switch g := g.(type) {
	case orb.Point:
		return yield(g)
	case orb.MultiPoint:
		return each(g, yield)
	case orb.LineString:
		return each(g, yield)
	case orb.MultiLineString:
		for _, ls := range g {
			if !each(ls, yield) {
				return false
			}
		}
	case orb.Collection:
		for _, child := range g {
			if !walk(child, areal, yield) {
				return false
			}
		}
	case orb.Ring:
		if areal {
			return each(g, yield)
		}
	case orb.Polygon:
		if areal {
			for _, r := range g {
				if !each(r, yield) {
					return false
				}
			}
		}
	case orb.MultiPolygon:
		if areal {
			for _, poly := range g {
				if !walk(poly, true, yield) {
					return false
				}
			}
		}
	}
	return true
}

func each[S ~[]orb.Point](points S, yield func(orb.Point) bool) bool {
	for _, p := range points {
		if !yield(p) {
			return false
		}
	}
	return true
}

// BoundingBox returns [minX, minY, maxX, maxY] over every coordinate of g,
// polygon rings included, or nil when g has no coordinates.
func BoundingBox(g orb.Geometry) []float64 {
	var (
		bbox  []float64
		first = true
	)
	walk(g, true, func(p orb.Point) bool {
		if first {
			bbox = []float64{p.X(), p.Y(), p.X(), p.Y()}
			first = false
			return true
		}
		bbox[0] = math.Min(bbox[0], p.X())
		bbox[1] = math.Min(bbox[1], p.Y())
		bbox[2] = math.Max(bbox[2], p.X())
		bbox[3] = math.Max(bbox[3], p.Y())
		return true
	})
	return bbox
}

// Distance returns the geodesic length of g in meters. Sub-lines of a
// MultiLineString and children of a Collection are measured separately and
// summed; areal geometries and single points measure 0.
func Distance(g orb.Geometry) float64 {
	switch g := g.(type) {
	case orb.MultiPoint:
		return PathDistance(slices.Values(g))
	case orb.LineString:
		return PathDistance(slices.Values(g))
	case orb.MultiLineString:
		var total float64
		for _, ls := range g {
			total += Distance(ls)
		}
		return total
	case orb.Collection:
		var total float64
		for _, child := range g {
			total += Distance(child)
		}
		return total
	}
	return 0
}

// StartPoint returns the first point of g in traversal order. For a
// Collection it is the start of the first child that has one.
func StartPoint(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.LineString:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.MultiLineString:
		if len(g) > 0 {
			return StartPoint(g[0])
		}
	case orb.Collection:
		for _, child := range g {
			if p, ok := StartPoint(child); ok {
				return p, true
			}
		}
	}
	return orb.Point{}, false
}

// EndPoint returns the last point of g in traversal order. For a
// Collection it is the end of the last child that has one.
func EndPoint(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) > 0 {
			return g[len(g)-1], true
		}
	case orb.LineString:
		if len(g) > 0 {
			return g[len(g)-1], true
		}
	case orb.MultiLineString:
		if len(g) > 0 {
			return EndPoint(g[len(g)-1])
		}
	case orb.Collection:
		for i := len(g) - 1; i >= 0; i-- {
			if p, ok := EndPoint(g[i]); ok {
				return p, true
			}
		}
	}
	return orb.Point{}, false
}

// Validate checks that every coordinate of g is a finite lon/lat pair.
func Validate(g orb.Geometry) error {
	var err error
	i := 0
	walk(g, true, func(p orb.Point) bool {
		switch {
		case math.IsNaN(p.X()) || math.IsNaN(p.Y()) || math.IsInf(p.X(), 0) || math.IsInf(p.Y(), 0):
			err = fmt.Errorf("%w: coordinate %d is not finite", ErrMalformedGeometry, i)
		case p.Lon() < -180 || p.Lon() > 180 || p.Lat() < -90 || p.Lat() > 90:
			err = fmt.Errorf("%w: coordinate %d (%g, %g) out of range", ErrMalformedGeometry, i, p.Lon(), p.Lat())
		}
		i++
		return err == nil
	})
	return err
}
