package learned

import (
	"context"
	"fmt"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
)

// MappingLister is the slice of the store the index source needs.
type MappingLister interface {
	ListLearnedMappings(ctx context.Context) ([]core.LearnedMapping, error)
}

// IndexSource yields the current learned-mapping index.
type IndexSource interface {
	Index(ctx context.Context) (*Index, error)
}

// StoreSource builds a fresh index from the store on every call.
// Request-scoped by construction; no staleness to manage.
type StoreSource struct {
	Store MappingLister
}

func (s StoreSource) Index(ctx context.Context) (*Index, error) {
	ms, err := s.Store.ListLearnedMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list learned mappings: %w", err)
	}
	return NewIndex(ms), nil
}

const indexCacheKey = "learned-index"

// CachedSource is a read-through cache over StoreSource. Invalidate must be
// called on every mapping write; the TTL is only a backstop against a
// missed invalidation, not the consistency mechanism.
type CachedSource struct {
	store StoreSource
	cache cache.Cache[*Index]
}

// NewCachedSource wraps the store with a single-entry index cache.
func NewCachedSource(store MappingLister, ttl time.Duration) *CachedSource {
	return &CachedSource{
		store: StoreSource{Store: store},
		cache: cache.NewLRUCache[*Index](1, ttl),
	}
}

func (c *CachedSource) Index(ctx context.Context) (*Index, error) {
	if ix, ok := c.cache.Get(indexCacheKey); ok {
		return ix, nil
	}
	ix, err := c.store.Index(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(indexCacheKey, ix)
	return ix, nil
}

// Invalidate drops the cached index so the next lookup sees the write.
func (c *CachedSource) Invalidate() {
	c.cache.Delete(indexCacheKey)
}
