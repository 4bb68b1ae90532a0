// Package cache adapts the teacher's tools.Cache interface (Get/Set/
// GetJSON/SetJSON/Delete/Has) onto github.com/dgraph-io/ristretto/v2, an
// in-process cache, since the teacher's own backing type (data.Connector)
// was not part of this retrieval. The interface shape, key-prefixing, and
// TTL-constant conventions are carried over unchanged.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is the interface consumed by store.CachedStore (the Entity
// Registry's distinct-value reads), faqindex.CachedIndex and
// handler.Synthesizer for local memoization.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string)
	Has(ctx context.Context, key string) bool
}

// RistrettoCache implements Cache using an in-process ristretto cache.
type RistrettoCache struct {
	store     *ristretto.Cache[string, []byte]
	keyPrefix string
}

// NewRistrettoCache builds a cache sized for a modest registry/FAQ
// working set.
func NewRistrettoCache(keyPrefix string) (*RistrettoCache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     1 << 24, // 16MB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &RistrettoCache{store: store, keyPrefix: keyPrefix}, nil
}

func (c *RistrettoCache) formatKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.keyPrefix, key)
}

func (c *RistrettoCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.store.Get(c.formatKey(key))
}

func (c *RistrettoCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	formatted := c.formatKey(key)
	cost := int64(len(value))
	if ttl > 0 {
		c.store.SetWithTTL(formatted, value, cost, ttl)
	} else {
		c.store.Set(formatted, value, cost)
	}
	c.store.Wait()
	return nil
}

func (c *RistrettoCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.store.Get(c.formatKey(key))
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached value for %s: %w", key, err)
	}
	return true, nil
}

func (c *RistrettoCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

func (c *RistrettoCache) Delete(_ context.Context, key string) {
	c.store.Del(c.formatKey(key))
}

func (c *RistrettoCache) Has(_ context.Context, key string) bool {
	_, ok := c.store.Get(c.formatKey(key))
	return ok
}

// Registry and FAQ cache TTLs and key patterns, following the teacher's
// cache.go convention of named duration vars plus documented key-pattern
// constants.
var (
	RegistryTTLDuration = time.Minute * 10
	FAQResultTTLDuration = time.Minute * 5
)

const (
	RegistryBanksKey        = "registry:banks"
	RegistryCategoriesKey   = "registry:categories"
	RegistryProductNamesKey = "registry:product-names"
	FAQResultKeyPattern     = "faq-result:%s" // faq-result:<k>:<query>
)
