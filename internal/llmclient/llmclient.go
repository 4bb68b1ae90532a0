// Package llmclient wraps the language-model client named in spec.md
// §1/§6. The router's own scope is dispatch, not synthesis, so this
// package is deliberately thin: it exists to give EXPLAIN/EXPLAIN_ALL/
// COMPARE/RECOMMEND/FAQ/LLM_FALLBACK handlers a synchronous
// text-generation call, and to give the router a "ping the LLM" fallback
// path — nothing here participates in a routing decision.
package llmclient

import "context"

// Client is the synchronous text-generation interface consumed by
// post-routing handlers.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
