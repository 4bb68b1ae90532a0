package faqindex

import (
	"context"
	"fmt"

	"github.com/txplain/bankrouter/internal/cache"
)

// CachedIndex decorates a FAQIndex with per-query memoization, since the
// evidence retriever issues an identical TopK lookup on every turn that
// repeats a FAQ-shaped question (spec.md §5). Ordering and Similarity
// values are served byte-for-byte from the cached hit set.
type CachedIndex struct {
	inner FAQIndex
	cache cache.Cache
}

// NewCachedIndex wraps inner with c. A nil cache.Cache disables caching.
func NewCachedIndex(inner FAQIndex, c cache.Cache) *CachedIndex {
	return &CachedIndex{inner: inner, cache: c}
}

func (ci *CachedIndex) TopK(ctx context.Context, query string, k int) ([]Hit, error) {
	if ci.cache == nil {
		return ci.inner.TopK(ctx, query, k)
	}
	key := fmt.Sprintf(cache.FAQResultKeyPattern, fmt.Sprintf("%d:%s", k, query))

	var cached []Hit
	if ok, err := ci.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	hits, err := ci.inner.TopK(ctx, query, k)
	if err != nil {
		return nil, err
	}
	_ = ci.cache.SetJSON(ctx, key, hits, cache.FAQResultTTLDuration)
	return hits, nil
}
