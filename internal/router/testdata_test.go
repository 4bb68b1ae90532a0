package router

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/faqindex"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/registry"
	"github.com/txplain/bankrouter/internal/session"
	"github.com/txplain/bankrouter/internal/store"
)

// fixtureRecords is the small product catalog every router test builds
// its registry and store from.
func fixtureRecords() []store.ProductRecord {
	return []store.ProductRecord{
		{Bank: "SBI", Category: "Credit Card", Name: "SBI Prime Credit Card", Description: "cashback card"},
		{Bank: "SBI", Category: "Credit Card", Name: "SBI SimplyCLICK Credit Card", Description: "online shopping card"},
		{Bank: "SBI", Category: "Home Loan", Name: "SBI Home Loan", Description: "home loan"},
		{Bank: "HDFC", Category: "Credit Card", Name: "HDFC Regalia Credit Card", Description: "premium card"},
		{Bank: "HDFC", Category: "Home Loan", Name: "HDFC Home Loan", Description: "home loan"},
	}
}

func newFixtureRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	ps := store.NewInMemoryStore(fixtureRecords())
	reg := registry.New(ps, time.Hour, zerolog.Nop(), nil)
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("registry refresh: %v", err)
	}
	return reg
}

func newFixtureContext(t *testing.T) *Context {
	t.Helper()
	ps := store.NewInMemoryStore(fixtureRecords())
	reg := registry.New(ps, time.Hour, zerolog.Nop(), nil)
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("registry refresh: %v", err)
	}
	faq := faqindex.NewInMemoryIndex([]faqindex.Entry{
		{
			Question: "minimum balance requirement for a savings account",
			Answer:   "Most savings accounts require a minimum average balance of Rs 1000 to Rs 10000 depending on the branch type.",
			Keywords: []string{"minimum balance", "savings"},
		},
		{
			Question: "how do i apply for a home loan",
			Answer:   "Visit a branch or apply online with KYC documents and income proof to start a home loan application.",
			Keywords: []string{"apply", "loan application", "procedure"},
		},
	})
	sessions := session.NewInMemoryStore(30 * time.Minute)
	t.Cleanup(func() { _ = sessions.Close() })

	return &Context{
		ProductStore:           ps,
		FAQIndex:               faq,
		Registry:               reg,
		Sessions:               sessions,
		Logger:                 zerolog.Nop(),
		FAQSimilarityThreshold: 0.60,
		EvidenceDeadline:       100 * time.Millisecond,
		RequestDeadline:        2 * time.Second,
		GreetingSet: map[string]struct{}{
			"hi": {}, "hello": {},
		},
	}
}

func seedLastTurn(t *testing.T, rc *Context, turn models.LastTurn) {
	t.Helper()
	err := rc.Sessions.WithLock(context.Background(), turn.SessionID, func(_ models.LastTurn) (models.LastTurn, error) {
		return turn, nil
	})
	if err != nil {
		t.Fatalf("seed last turn: %v", err)
	}
}
