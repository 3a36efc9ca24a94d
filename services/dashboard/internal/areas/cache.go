package areas

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

const cacheKey = "areas"

// CachedSource keeps decoded areas in memory for ttl.
type CachedSource struct {
	next  Source
	cache *gocache.Cache
}

// NewCachedSource wraps next. Use it only with a positive ttl; without caching the
// collection is fetched on every run.
func NewCachedSource(next Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Fetch returns cached areas or delegates to the wrapped source.
func (c *CachedSource) Fetch(ctx context.Context) ([]models.ProtectedArea, error) {
	if v, found := c.cache.Get(cacheKey); found {
		return v.([]models.ProtectedArea), nil
	}
	areas, err := c.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(cacheKey, areas)
	return areas, nil
}
