// Package gpx converts GPX documents into GeoJSON ride tracks.
package gpx

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/pkg/geospatial"
)

// NameProperty holds the GPX track name on the converted feature.
const NameProperty = "name"

// Document is a parsed GPX file.
type Document struct {
	// Name is the metadata name, falling back to the first named track.
	Name       string
	Collection *geojson.FeatureCollection
}

// Read parses a GPX document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gpx: %w", err)
	}
	return Parse(data)
}

// Parse converts every GPX track into a MultiLineString feature, one line
// per track segment. Tracks without points are skipped; a document with
// no points at all is rejected with domain.ErrEmptyTrack.
func Parse(data []byte) (*Document, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse gpx: %w", domain.ErrInvalidRide, err)
	}

	out := &Document{Name: doc.Name, Collection: geojson.NewFeatureCollection()}
	for _, trk := range doc.Tracks {
		mls := trackLines(trk)
		if len(mls) == 0 {
			continue
		}
		f := geospatial.NewTrackFeature(mls)
		if trk.Name != "" {
			f.Properties[NameProperty] = trk.Name
			if out.Name == "" {
				out.Name = trk.Name
			}
		}
		out.Collection.Append(f)
	}

	if len(out.Collection.Features) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRide, domain.ErrEmptyTrack)
	}
	if bbox := geospatial.CollectionBoundingBox(out.Collection); bbox != nil {
		out.Collection.BBox = geojson.BBox(bbox)
	}
	return out, nil
}

func trackLines(trk gpx.GPXTrack) orb.MultiLineString {
	var mls orb.MultiLineString
	for _, seg := range trk.Segments {
		if len(seg.Points) == 0 {
			continue
		}
		ls := make(orb.LineString, 0, len(seg.Points))
		for _, pt := range seg.Points {
			ls = append(ls, orb.Point{pt.Longitude, pt.Latitude})
		}
		mls = append(mls, ls)
	}
	return mls
}
