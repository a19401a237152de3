package usecases_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/core/usecases"
)

func pointsN(n int) []domain.WayPoint {
	pts := make([]domain.WayPoint, n)
	for i := range pts {
		pts[i] = domain.WayPoint{Seq: i, Point: orb.Point{0, float64(i)}}
	}
	return pts
}

func TestSurfaceComposition(t *testing.T) {
	ways := []domain.Way{
		{Key: "a", Surface: "asphalt", Points: pointsN(2)},
		{Key: "b", Surface: "gravel", Points: pointsN(1)},
		{Key: "c", Surface: "fine_gravel", Points: pointsN(1)},
		{Key: "d", Surface: "cobblestone", Points: pointsN(4)},
		{Key: "e", Points: pointsN(10)},
	}

	got := usecases.SurfaceComposition(ways)
	assert.Len(t, got, 3)
	assert.InDelta(t, 0.25, got["tarmac"], 1e-9)
	assert.InDelta(t, 0.25, got["dirt"], 1e-9)
	assert.InDelta(t, 0.5, got["cobblestone"], 1e-9)
}

func TestSurfaceComposition_NoSurfaces(t *testing.T) {
	assert.Nil(t, usecases.SurfaceComposition(nil))
	assert.Nil(t, usecases.SurfaceComposition([]domain.Way{{Key: "a", Points: pointsN(3)}}))
}
