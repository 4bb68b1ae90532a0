package router

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/faqindex"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/store"
)

// evidenceRetriever implements spec.md §4.3 and the concurrency rules of
// §5/§7: one exact-count query to the product store and one top-k(k=1)
// query to the FAQ index, issued concurrently, each under its own
// deadline with one 50ms-backoff retry before falling back to its
// "unknown" sentinel. A retry that still fails is folded into a
// models.RouterError (ErrTransientBackendUnavailable, spec.md §7) and
// logged at warning level rather than surfaced as a bare error — the
// caller only ever sees the sentinel evidence.
type evidenceRetriever struct {
	productStore store.ProductStore
	faqIndex     faqindex.FAQIndex
	deadline     time.Duration
	logger       zerolog.Logger
}

func newEvidenceRetriever(ps store.ProductStore, faq faqindex.FAQIndex, deadline time.Duration, logger zerolog.Logger) *evidenceRetriever {
	return &evidenceRetriever{productStore: ps, faqIndex: faq, deadline: deadline, logger: logger}
}

func (r *evidenceRetriever) Name() string            { return "evidence_retriever" }
func (r *evidenceRetriever) Dependencies() []string { return []string{"scope_resolver"} }

func (r *evidenceRetriever) Process(ctx context.Context, b *Baggage) error {
	b.Evidence = r.Retrieve(ctx, b.Scope, b.Utterance)
	return nil
}

// Retrieve runs the concurrent count + top-k join.
func (r *evidenceRetriever) Retrieve(ctx context.Context, scope models.Scope, utterance string) models.Evidence {
	type countResult struct {
		count     int
		timedOut  bool
	}
	type faqResult struct {
		hits     []faqindex.Hit
		timedOut bool
	}

	countCh := make(chan countResult, 1)
	faqCh := make(chan faqResult, 1)

	go func() {
		if scope.ScopeStrength == models.ScopeNone {
			countCh <- countResult{count: models.UnknownCount}
			return
		}
		n, timedOut := r.fetchCount(ctx, scope)
		countCh <- countResult{count: n, timedOut: timedOut}
	}()

	go func() {
		hits, timedOut := r.fetchTopK(ctx, utterance)
		faqCh <- faqResult{hits: hits, timedOut: timedOut}
	}()

	cr := <-countCh
	fr := <-faqCh

	ev := models.Evidence{
		DBCount:         cr.count,
		DBCountTimedOut: cr.timedOut,
	}
	if len(fr.hits) > 0 {
		ev.FAQTopSimilarity = fr.hits[0].Similarity
		ev.FAQTopMetadata = models.FAQMetadata{
			Bank:     fr.hits[0].Metadata.Bank,
			Category: fr.hits[0].Metadata.Category,
			Question: fr.hits[0].Metadata.Question,
			Answer:   fr.hits[0].Metadata.Answer,
		}
	}
	ev.FAQLookupTimedOut = fr.timedOut
	return ev
}

func (r *evidenceRetriever) fetchCount(ctx context.Context, scope models.Scope) (int, bool) {
	attempt := func() (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.deadline)
		defer cancel()
		return r.productStore.Count(callCtx, scope.Bank, scope.Category, scope.ProductName)
	}

	n, err := attempt()
	if err == nil {
		return n, false
	}

	select {
	case <-ctx.Done():
		r.logTransientFailure("product store count", ctx.Err())
		return models.UnknownCount, true
	case <-time.After(50 * time.Millisecond):
	}

	n, err = attempt()
	if err == nil {
		return n, false
	}
	r.logTransientFailure("product store count", err)
	return models.UnknownCount, true
}

func (r *evidenceRetriever) fetchTopK(ctx context.Context, utterance string) ([]faqindex.Hit, bool) {
	attempt := func() ([]faqindex.Hit, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.deadline)
		defer cancel()
		return r.faqIndex.TopK(callCtx, utterance, 1)
	}

	hits, err := attempt()
	if err == nil {
		return hits, false
	}

	select {
	case <-ctx.Done():
		r.logTransientFailure("faq index top-k", ctx.Err())
		return nil, true
	case <-time.After(50 * time.Millisecond):
	}

	hits, err = attempt()
	if err == nil {
		return hits, false
	}
	r.logTransientFailure("faq index top-k", err)
	return nil, true
}

// logTransientFailure folds a final, retry-exhausted backend error into
// a models.RouterError and logs it at warning level, matching spec.md
// §7's ErrTransientBackendUnavailable kind.
func (r *evidenceRetriever) logTransientFailure(source string, cause error) {
	rerr := models.NewRouterError(models.ErrTransientBackendUnavailable, source+" unavailable after retry", cause)
	r.logger.Warn().Err(rerr).Msg("evidence retriever falling back to unknown sentinel")
}
