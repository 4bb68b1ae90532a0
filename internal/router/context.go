package router

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/faqindex"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/registry"
	"github.com/txplain/bankrouter/internal/session"
	"github.com/txplain/bankrouter/internal/store"
)

// Context is the explicit dependency-injection value named in spec.md
// §9: entity registry, conversation state, product-store handle, and
// FAQ-index handle composed together and threaded into the router entry
// point. No process-wide singletons — every test builds its own Context
// with fakes.
type Context struct {
	ProductStore store.ProductStore
	FAQIndex     faqindex.FAQIndex
	Registry     *registry.Registry
	Sessions     session.Store
	Logger       zerolog.Logger

	FAQSimilarityThreshold float64
	EvidenceDeadline       time.Duration
	RequestDeadline        time.Duration
	GreetingSet            map[string]struct{}
}

// Baggage is the request-scoped value threaded through the pipeline
// stages, equivalent to the teacher's map[string]interface{} baggage but
// typed: every field a sum-type record rather than a dynamically-typed
// map entry.
type Baggage struct {
	SessionID         string
	OriginalUtterance string
	Utterance         string // possibly rewritten by the follow-up resolver
	ContextBank       string // last_bank from conversation state, folded into Scope before evidence retrieval

	Scope    models.Scope
	Signals  models.Signals
	Evidence models.Evidence
}
