package store

import (
	"context"

	"github.com/txplain/bankrouter/internal/cache"
)

// CachedStore decorates a ProductStore with an in-process cache for the
// three distinct-value queries the Entity Registry issues on every
// Refresh (spec.md §5). Count, List, and Get stay live: a cached count
// or a stale single-product lookup would contradict spec.md §7's
// CountAtLeastOne freshness expectations, so only the registry's own
// read path is memoized.
type CachedStore struct {
	ProductStore
	cache cache.Cache
}

// NewCachedStore wraps ps with c. Passing a nil cache.Cache disables
// caching and falls through to ps directly.
func NewCachedStore(ps ProductStore, c cache.Cache) *CachedStore {
	return &CachedStore{ProductStore: ps, cache: c}
}

func (cs *CachedStore) DistinctBanks(ctx context.Context) ([]string, error) {
	return cs.cachedDistinct(ctx, cache.RegistryBanksKey, cs.ProductStore.DistinctBanks)
}

func (cs *CachedStore) DistinctCategories(ctx context.Context) ([]string, error) {
	return cs.cachedDistinct(ctx, cache.RegistryCategoriesKey, cs.ProductStore.DistinctCategories)
}

func (cs *CachedStore) DistinctProductNames(ctx context.Context) ([]string, error) {
	return cs.cachedDistinct(ctx, cache.RegistryProductNamesKey, cs.ProductStore.DistinctProductNames)
}

func (cs *CachedStore) cachedDistinct(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	if cs.cache == nil {
		return load(ctx)
	}
	var cached []string
	if ok, err := cs.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	values, err := load(ctx)
	if err != nil {
		return nil, err
	}
	_ = cs.cache.SetJSON(ctx, key, values, cache.RegistryTTLDuration)
	return values, nil
}
