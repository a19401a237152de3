package usecases

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/pkg/geospatial"
	"github.com/samirrijal/expedition/internal/pkg/metrics"
	"github.com/samirrijal/expedition/internal/pkg/telemetry"
)

// DefaultSegmentConcurrency caps the place lookups in flight at once.
const DefaultSegmentConcurrency = 50

// WaySegmenter splits a track into the named ways its points lie on.
type WaySegmenter struct {
	lookup      ports.PlaceLookup
	concurrency int
}

// NewWaySegmenter creates a WaySegmenter. A non-positive concurrency falls
// back to DefaultSegmentConcurrency.
func NewWaySegmenter(lookup ports.PlaceLookup, concurrency int) *WaySegmenter {
	if concurrency <= 0 {
		concurrency = DefaultSegmentConcurrency
	}
	return &WaySegmenter{lookup: lookup, concurrency: concurrency}
}

type classifiedPoint struct {
	point domain.WayPoint
	class *domain.Classification
}

type wayAccumulator struct {
	way        domain.Way
	surfaceSeq int
}

// Segment looks up every point concurrently and groups the points that land
// on a way by the way's key. Ways are returned in route order, each with its
// points sorted by sequence index and its distance measured over them.
//
// The first failed lookup fails the whole call; remaining lookups are
// cancelled and no partial result is returned.
func (s *WaySegmenter) Segment(ctx context.Context, points iter.Seq2[int, orb.Point]) ([]domain.Way, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "WaySegmenter.Segment")
	defer span.End()
	span.SetAttributes(telemetry.AttrConcurrency.Int(s.concurrency))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	results := make(chan classifiedPoint)
	accumulated := make(chan map[string]*wayAccumulator, 1)
	go func() {
		accumulated <- accumulate(results)
	}()

	dispatched := 0
	for i, p := range points {
		if gctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error {
			class, err := s.lookup.Lookup(gctx, p)
			if err != nil {
				metrics.PlaceLookups.WithLabelValues("error").Inc()
				return fmt.Errorf("lookup point %d: %w", i, err)
			}
			if !class.IsWay() {
				metrics.PlaceLookups.WithLabelValues("ignored").Inc()
				return nil
			}
			metrics.PlaceLookups.WithLabelValues("way").Inc()
			select {
			case results <- classifiedPoint{point: domain.WayPoint{Seq: i, Point: p}, class: class}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(results)
	acc := <-accumulated
	if err == nil {
		err = ctx.Err()
	}
	span.SetAttributes(telemetry.AttrPointCount.Int(dispatched))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "segmentation failed")
		return nil, err
	}

	ways := finishWays(acc)

	elapsed := time.Since(start)
	metrics.SegmentationDuration.Observe(elapsed.Seconds())
	metrics.WaysPerRide.Observe(float64(len(ways)))
	span.SetAttributes(telemetry.AttrWayCount.Int(len(ways)))
	slog.DebugContext(ctx, "track segmented",
		"points", dispatched, "ways", len(ways), "duration", elapsed.String())

	return ways, nil
}

// accumulate is the only writer of the way map.
func accumulate(results <-chan classifiedPoint) map[string]*wayAccumulator {
	ways := make(map[string]*wayAccumulator)
	for r := range results {
		seq := r.point.Seq
		acc, ok := ways[r.class.GroupKey]
		if !ok {
			acc = &wayAccumulator{
				way:        domain.Way{Key: r.class.GroupKey, Name: r.class.Name, Seq: seq},
				surfaceSeq: -1,
			}
			ways[r.class.GroupKey] = acc
		}
		// Completion order is arbitrary; keep the attributes of the lowest index.
		if seq < acc.way.Seq {
			acc.way.Seq = seq
			if r.class.Name != "" {
				acc.way.Name = r.class.Name
			}
		}
		if r.class.Surface != "" && (acc.surfaceSeq < 0 || seq < acc.surfaceSeq) {
			acc.way.Surface = r.class.Surface
			acc.surfaceSeq = seq
		}
		acc.way.Points = append(acc.way.Points, r.point)
	}
	return ways
}

func finishWays(acc map[string]*wayAccumulator) []domain.Way {
	ways := make([]domain.Way, 0, len(acc))
	for _, a := range acc {
		w := a.way
		slices.SortFunc(w.Points, func(a, b domain.WayPoint) int { return cmp.Compare(a.Seq, b.Seq) })
		w.Distance = geospatial.PathDistance(wayPointCoords(w.Points))
		ways = append(ways, w)
	}
	slices.SortFunc(ways, func(a, b domain.Way) int { return cmp.Compare(a.Seq, b.Seq) })
	return ways
}

func wayPointCoords(points []domain.WayPoint) iter.Seq[orb.Point] {
	return func(yield func(orb.Point) bool) {
		for _, wp := range points {
			if !yield(wp.Point) {
				return
			}
		}
	}
}
