// Package registry implements the Entity Registry (spec.md §3, §5): the
// live set of known banks, categories, and product names drawn from the
// product store, with canonical spellings and lowercase aliases. It is
// rebuilt on demand, cached with a TTL, and protected against concurrent
// stampede by a single-flight guard — in-process via a mutex, and
// optionally cross-process via redsync when a distributed lock is wired
// in (multiple router replicas sharing one product store).
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/store"
)

// entity is one canonical name plus every lowercase string that should
// resolve to it (the name itself, always included).
type entity struct {
	canonical string
	aliases   []string
}

// Registry holds the current entity set and refreshes it from a
// ProductStore. Zero value is not usable; construct with New.
type Registry struct {
	productStore store.ProductStore
	refreshEvery time.Duration
	logger       zerolog.Logger
	distLock     *redsync.Mutex // optional; nil means in-process only

	mu           sync.RWMutex
	banks        []entity
	categories   []entity
	productNames []entity
	lastRefresh  time.Time

	refreshMu     sync.Mutex
	refreshActive bool
	refreshWaiter chan struct{}
}

// New builds an (empty, not-yet-refreshed) Registry. Call Refresh before
// first use, or rely on StartBackgroundRefresh to populate it.
func New(ps store.ProductStore, refreshEvery time.Duration, logger zerolog.Logger, distLock *redsync.Mutex) *Registry {
	return &Registry{
		productStore: ps,
		refreshEvery: refreshEvery,
		logger:       logger,
		distLock:     distLock,
	}
}

// Refresh reloads the registry from the product store. Concurrent
// callers collapse into a single in-flight refresh (single-flight); if a
// distributed lock was supplied, it is held for the duration of the
// actual store query so that concurrent refreshes from other replicas
// also collapse.
func (r *Registry) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	if r.refreshActive {
		waiter := r.refreshWaiter
		r.refreshMu.Unlock()
		<-waiter
		return nil
	}
	r.refreshActive = true
	r.refreshWaiter = make(chan struct{})
	r.refreshMu.Unlock()

	defer func() {
		r.refreshMu.Lock()
		r.refreshActive = false
		close(r.refreshWaiter)
		r.refreshMu.Unlock()
	}()

	if r.distLock != nil {
		if err := r.distLock.LockContext(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("registry distributed lock unavailable, refreshing locally only")
		} else {
			defer func() { _, _ = r.distLock.UnlockContext(ctx) }()
		}
	}

	banks, err := r.productStore.DistinctBanks(ctx)
	if err != nil {
		return fmt.Errorf("load distinct banks: %w", err)
	}
	categories, err := r.productStore.DistinctCategories(ctx)
	if err != nil {
		return fmt.Errorf("load distinct categories: %w", err)
	}
	names, err := r.productStore.DistinctProductNames(ctx)
	if err != nil {
		return fmt.Errorf("load distinct product names: %w", err)
	}

	r.mu.Lock()
	r.banks = toEntities(banks)
	r.categories = toEntities(categories)
	r.productNames = toEntities(names)
	r.lastRefresh = time.Now()
	r.mu.Unlock()

	if len(banks) == 0 {
		rerr := models.NewRouterError(models.ErrEmptyRegistry, "entity registry refreshed with zero known banks", nil)
		r.logger.Warn().Err(rerr).Msg("entity registry is empty")
	}
	return nil
}

// EnsureFresh refreshes the registry if it has never been loaded or has
// exceeded refreshEvery since the last load. Call this from request
// paths that cannot tolerate a stale-past-TTL registry but also should
// not always pay a refresh's cost.
func (r *Registry) EnsureFresh(ctx context.Context) error {
	r.mu.RLock()
	stale := r.lastRefresh.IsZero() || time.Since(r.lastRefresh) > r.refreshEvery
	r.mu.RUnlock()
	if !stale {
		return nil
	}
	return r.Refresh(ctx)
}

// StartBackgroundRefresh runs Refresh on a ticker until ctx is canceled.
func (r *Registry) StartBackgroundRefresh(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("initial entity registry refresh failed")
	}
	ticker := time.NewTicker(r.refreshEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Warn().Err(err).Msg("background entity registry refresh failed")
				}
			}
		}
	}()
}

// IsEmpty reports the EmptyRegistry condition from spec.md §7.
func (r *Registry) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.banks) == 0
}

// TopBanks returns up to n canonical bank names, for CLARIFY prompts.
func (r *Registry) TopBanks(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, n)
	for i, b := range r.banks {
		if i >= n {
			break
		}
		out = append(out, b.canonical)
	}
	return out
}

// MatchLongestBank returns the longest bank alias that occurs in text
// (already lowercased) along with its canonical spelling.
func (r *Registry) MatchLongestBank(lowerText string) (canonical string, aliasLen int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchLongest(r.banks, lowerText)
}

// MatchLongestCategory returns the longest category alias occurring in text.
func (r *Registry) MatchLongestCategory(lowerText string) (canonical string, aliasLen int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchLongest(r.categories, lowerText)
}

// MatchLongestProductName returns the longest product-name alias
// occurring in text. Like bank and category matching, this is plain
// substring containment: no word-boundary check is applied here or by
// the caller, so an alias also matches inside a longer word.
func (r *Registry) MatchLongestProductName(lowerText string) (canonical string, aliasLen int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchLongest(r.productNames, lowerText)
}

// OwningBank returns the bank a product name belongs to, if the registry
// knows one. Used to let a bare product-name mention inherit its bank.
func (r *Registry) OwningBank(ctx context.Context, productName string) (string, bool, error) {
	rec, ok, err := lookupOwningBank(ctx, r.productStore, productName)
	if err != nil {
		return "", false, err
	}
	return rec, ok, nil
}

func lookupOwningBank(ctx context.Context, ps store.ProductStore, productName string) (string, bool, error) {
	banks, err := ps.DistinctBanks(ctx)
	if err != nil {
		return "", false, err
	}
	for _, bank := range banks {
		if rec, ok, err := ps.Get(ctx, bank, productName); err == nil && ok {
			return rec.Bank, true, nil
		}
	}
	return "", false, nil
}

func toEntities(names []string) []entity {
	out := make([]entity, 0, len(names))
	for _, n := range names {
		out = append(out, entity{canonical: n, aliases: []string{strings.ToLower(n)}})
	}
	// Longest alias first so MatchLongest naturally prefers the more
	// specific match when one alias is a substring of another.
	sort.Slice(out, func(i, j int) bool { return len(out[i].aliases[0]) > len(out[j].aliases[0]) })
	return out
}

// MatchAllBanks returns every bank alias occurring in text, ordered by
// first occurrence position — used for the Scope Resolver's "first bank
// in textual order, remainder in alt_banks" rule and for COMPARE/
// RECOMMEND multi-bank detection.
func (r *Registry) MatchAllBanks(lowerText string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchAllOrdered(r.banks, lowerText)
}

func matchAllOrdered(entities []entity, lowerText string) []string {
	type hit struct {
		canonical string
		pos       int
	}
	seen := make(map[string]bool)
	hits := make([]hit, 0)
	for _, e := range entities {
		if seen[e.canonical] {
			continue
		}
		for _, alias := range e.aliases {
			if idx := strings.Index(lowerText, alias); idx >= 0 {
				hits = append(hits, hit{canonical: e.canonical, pos: idx})
				seen[e.canonical] = true
				break
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.canonical)
	}
	return out
}

func matchLongest(entities []entity, lowerText string) (string, int, bool) {
	best := ""
	bestLen := 0
	found := false
	for _, e := range entities {
		for _, alias := range e.aliases {
			if len(alias) <= bestLen {
				continue
			}
			if strings.Contains(lowerText, alias) {
				best = e.canonical
				bestLen = len(alias)
				found = true
			}
		}
	}
	return best, bestLen, found
}
