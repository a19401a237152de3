package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/pkg/metrics"
)

// placeCacheTTL keeps classifications for a week; OSM ways rarely move.
const placeCacheTTL = 7 * 24 * 3600

// CachedPlaceLookup is a read-through cache in front of a PlaceLookup.
// Coordinates are keyed at 5 decimal places (about 1 m).
type CachedPlaceLookup struct {
	next  ports.PlaceLookup
	cache ports.CacheService
}

// NewCachedPlaceLookup wraps next with cache. A nil cache disables caching.
func NewCachedPlaceLookup(next ports.PlaceLookup, cache ports.CacheService) *CachedPlaceLookup {
	return &CachedPlaceLookup{next: next, cache: cache}
}

func placeCacheKey(p orb.Point) string {
	return fmt.Sprintf("place:%.5f:%.5f", p.Lon(), p.Lat())
}

// Lookup implements ports.PlaceLookup.
func (c *CachedPlaceLookup) Lookup(ctx context.Context, p orb.Point) (*domain.Classification, error) {
	key := placeCacheKey(p)
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key); err == nil {
			var class domain.Classification
			if err := json.Unmarshal(data, &class); err == nil {
				metrics.CacheHits.WithLabelValues("place_lookup").Inc()
				return &class, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("place_lookup").Inc()
	}

	class, err := c.next.Lookup(ctx, p)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && class != nil {
		if data, err := json.Marshal(class); err == nil {
			_ = c.cache.Set(ctx, key, data, placeCacheTTL)
		}
	}
	return class, nil
}
