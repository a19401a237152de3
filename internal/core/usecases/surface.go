package usecases

import "github.com/samirrijal/expedition/internal/core/domain"

// aggregateSurface folds OSM surface tags into coarse classes.
func aggregateSurface(surface string) string {
	switch surface {
	case "gravel", "unpaved", "dirt", "fine_gravel", "rock":
		return "dirt"
	case "asphalt", "paved":
		return "tarmac"
	default:
		return surface
	}
}

// SurfaceComposition returns, per aggregated surface, the share of way
// points lying on it. Ways without a surface tag are not counted. It
// returns nil when no way carries a surface.
func SurfaceComposition(ways []domain.Way) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, w := range ways {
		if w.Surface == "" {
			continue
		}
		counts[aggregateSurface(w.Surface)] += len(w.Points)
		total += len(w.Points)
	}
	if total == 0 {
		return nil
	}

	ratios := make(map[string]float64, len(counts))
	for k, v := range counts {
		ratios[k] = float64(v) / float64(total)
	}
	return ratios
}
