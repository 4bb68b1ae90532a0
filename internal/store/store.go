// Package store defines the Product store boundary: a relational catalog
// of banking products, consumed but not owned by the router (spec.md
// §1, §6). The interface is intentionally the whole surface the router
// needs and nothing more.
package store

import "context"

// ProductRecord is one row of the catalog as returned by Get/List.
type ProductRecord struct {
	Bank        string
	Category    string
	Name        string
	Description string
}

// ProductStore is the interface consumed by the router. Implementations
// are read-only from the router's perspective; ingestion owns writes.
type ProductStore interface {
	// Count returns the number of products matching the given bank and
	// category (either may be empty to mean "any"), optionally narrowed
	// by product name. Never returns a negative number; unknown/timeout
	// handling is the evidence retriever's responsibility, not the
	// store's.
	Count(ctx context.Context, bank, category, productName string) (int, error)

	// List returns every product for an exact (bank, category) pair, in
	// a stable order (by Name).
	List(ctx context.Context, bank, category string) ([]ProductRecord, error)

	// Get returns a single named product for a bank, or ok=false if it
	// does not exist.
	Get(ctx context.Context, bank, name string) (ProductRecord, bool, error)

	DistinctBanks(ctx context.Context) ([]string, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	DistinctProductNames(ctx context.Context) ([]string, error)
}
