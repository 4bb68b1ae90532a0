// Package faqindex defines the FAQ index boundary: a semantic vector
// store over procedural/how-to content, consumed but not owned by the
// router (spec.md §1, §6). Higher Similarity always means more relevant,
// by construction of this package's own fake and reference adapter —
// resolving the FAQ-similarity-direction open question named in spec.md
// §9 by owning both ends of the interface.
package faqindex

import "context"

// Metadata is the payload carried alongside a FAQ hit.
type Metadata struct {
	Bank     string
	Category string
	Question string
	Answer   string
}

// Hit is one scored result from TopK, ordered by Similarity descending.
type Hit struct {
	Similarity float64 // in [0, 1]; higher is more relevant
	Metadata   Metadata
}

// FAQIndex is the interface consumed by the router.
type FAQIndex interface {
	// TopK returns up to k hits for query, ordered by Similarity
	// descending. An empty slice (not an error) means no hits cleared
	// even the lowest floor the implementation applies internally.
	TopK(ctx context.Context, query string, k int) ([]Hit, error)
}
