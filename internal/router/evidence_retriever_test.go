package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/faqindex"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/store"
)

// slowStore always blocks past whatever deadline its caller's context
// carries, so fetchCount's retry-then-sentinel path is exercised
// deterministically.
type slowStore struct {
	store.ProductStore
}

func (slowStore) Count(ctx context.Context, _, _, _ string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

// slowFAQIndex is the FAQ-side equivalent of slowStore.
type slowFAQIndex struct{}

func (slowFAQIndex) TopK(ctx context.Context, _ string, _ int) ([]faqindex.Hit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEvidenceRetriever_ConcreteCount(t *testing.T) {
	ps := store.NewInMemoryStore(fixtureRecords())
	faq := faqindex.NewInMemoryIndex(nil)
	r := newEvidenceRetriever(ps, faq, 100*time.Millisecond, zerolog.Nop())

	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	ev := r.Retrieve(context.Background(), scope, "how many SBI credit cards")

	if ev.DBCount != 2 {
		t.Fatalf("DBCount = %d, want 2", ev.DBCount)
	}
	if ev.DBCountTimedOut {
		t.Fatal("did not expect a timeout")
	}
	if !ev.HasCount() {
		t.Fatal("expected HasCount true")
	}
}

func TestEvidenceRetriever_UnscopedSkipsCountQuery(t *testing.T) {
	ps := store.NewInMemoryStore(fixtureRecords())
	faq := faqindex.NewInMemoryIndex(nil)
	r := newEvidenceRetriever(ps, faq, 100*time.Millisecond, zerolog.Nop())

	ev := r.Retrieve(context.Background(), models.Scope{}, "hello")
	if ev.DBCount != models.UnknownCount {
		t.Fatalf("DBCount = %d, want UnknownCount", ev.DBCount)
	}
	if ev.HasCount() {
		t.Fatal("expected HasCount false for an unscoped query")
	}
}

func TestEvidenceRetriever_CountTimesOutAfterRetry(t *testing.T) {
	faq := faqindex.NewInMemoryIndex(nil)
	r := newEvidenceRetriever(slowStore{}, faq, 10*time.Millisecond, zerolog.Nop())

	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	start := time.Now()
	ev := r.Retrieve(context.Background(), scope, "how many SBI credit cards")
	elapsed := time.Since(start)

	if !ev.DBCountTimedOut {
		t.Fatal("expected DBCountTimedOut true")
	}
	if ev.DBCount != models.UnknownCount {
		t.Fatalf("DBCount = %d, want UnknownCount", ev.DBCount)
	}
	// Two attempts at 10ms each plus a 50ms backoff: comfortably under a
	// second, comfortably over the single-attempt deadline.
	if elapsed < 10*time.Millisecond {
		t.Fatalf("elapsed = %v, expected at least one full deadline", elapsed)
	}
}

func TestEvidenceRetriever_FAQLookupTimesOut(t *testing.T) {
	ps := store.NewInMemoryStore(fixtureRecords())
	r := newEvidenceRetriever(ps, slowFAQIndex{}, 10*time.Millisecond, zerolog.Nop())

	ev := r.Retrieve(context.Background(), models.Scope{}, "how do I apply for a home loan")
	if !ev.FAQLookupTimedOut {
		t.Fatal("expected FAQLookupTimedOut true")
	}
	if ev.FAQTopSimilarity != 0 {
		t.Fatalf("FAQTopSimilarity = %v, want 0", ev.FAQTopSimilarity)
	}
}

func TestEvidenceRetriever_FAQHitPopulatesMetadata(t *testing.T) {
	ps := store.NewInMemoryStore(fixtureRecords())
	faq := faqindex.NewInMemoryIndex([]faqindex.Entry{
		{
			Question: "minimum balance requirement for a savings account",
			Answer:   "Most savings accounts require a minimum average balance depending on the branch type.",
			Keywords: []string{"minimum balance"},
		},
	})
	r := newEvidenceRetriever(ps, faq, 100*time.Millisecond, zerolog.Nop())

	ev := r.Retrieve(context.Background(), models.Scope{}, "minimum balance requirement for a savings account")
	if ev.FAQTopSimilarity <= 0 {
		t.Fatalf("FAQTopSimilarity = %v, want > 0", ev.FAQTopSimilarity)
	}
	if ev.FAQTopMetadata.Question == "" {
		t.Fatal("expected FAQTopMetadata.Question to be populated")
	}
}

func TestEvidenceRetriever_ContextCancellationPropagates(t *testing.T) {
	faq := faqindex.NewInMemoryIndex(nil)
	r := newEvidenceRetriever(slowStore{}, faq, 200*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	ev := r.Retrieve(ctx, scope, "how many SBI credit cards")
	if !ev.DBCountTimedOut {
		t.Fatal("expected DBCountTimedOut true when the parent context is already expiring")
	}
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}
