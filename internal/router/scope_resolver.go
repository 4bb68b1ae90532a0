package router

import (
	"context"
	"strings"

	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/registry"
)

// scopeResolver implements spec.md §4.1. It is a leaf stage: its only
// side effect is reading the (cached) entity registry, never failing —
// an utterance with nothing recognizable resolves to an empty Scope.
type scopeResolver struct {
	registry *registry.Registry
}

func newScopeResolver(reg *registry.Registry) *scopeResolver {
	return &scopeResolver{registry: reg}
}

func (r *scopeResolver) Name() string            { return "scope_resolver" }
func (r *scopeResolver) Dependencies() []string { return nil }

func (r *scopeResolver) Process(ctx context.Context, b *Baggage) error {
	b.Scope = r.Resolve(ctx, b.Utterance)
	return nil
}

// Resolve is exported so the follow-up resolver and smart router can
// re-run scope resolution against a rewritten utterance without going
// through the full pipeline.
func (r *scopeResolver) Resolve(ctx context.Context, utterance string) models.Scope {
	lower := strings.ToLower(utterance)

	banks := r.registry.MatchAllBanks(lower)
	category, _, categoryOK := r.registry.MatchLongestCategory(lower)
	productName, productLen, productOK := r.registry.MatchLongestProductName(lower)

	// The category is dropped only when the lowercased product name
	// contains the category's canonical spelling verbatim. The comparison
	// is case-sensitive, so a category whose canonical spelling has capitals
	// ("Home Loan" inside "hdfc home loan") is kept alongside the product
	// name. A product name's owning bank fills in the bank dimension if none
	// was mentioned explicitly.
	if productOK && categoryOK && productLen > 0 && strings.Contains(strings.ToLower(productName), category) {
		categoryOK = false
		category = ""
	}

	scope := models.Scope{}
	if len(banks) > 0 {
		scope.Bank = banks[0]
		if len(banks) > 1 {
			scope.AltBanks = banks[1:]
		}
	}
	if categoryOK {
		scope.Category = category
	}
	if productOK {
		scope.ProductName = productName
		if scope.Bank == "" {
			if owner, ok, err := r.registry.OwningBank(ctx, productName); err == nil && ok {
				scope.Bank = owner
			}
		}
	}

	scope.ScopeStrength = models.StrengthFor(scope.HasBank(), scope.HasCategory())
	return scope
}
