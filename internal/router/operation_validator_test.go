package router

import (
	"testing"

	"github.com/txplain/bankrouter/internal/models"
)

type fakeBankLister struct{ banks []string }

func (f fakeBankLister) TopBanks(n int) []string {
	if n > len(f.banks) {
		n = len(f.banks)
	}
	return f.banks[:n]
}

func validate(t *testing.T, utterance string, scope models.Scope, sig models.Signals, ev models.Evidence) models.RoutingDecision {
	t.Helper()
	return Validate(validatorInput{
		Utterance: utterance,
		Scope:     scope,
		Signals:   sig,
		Evidence:  ev,
		Threshold: 0.60,
		Registry:  fakeBankLister{banks: []string{"SBI", "HDFC"}},
	})
}

func wantSingleOp(t *testing.T, d models.RoutingDecision, tag models.OperationTag) {
	t.Helper()
	if d.IsClarify() {
		t.Fatalf("got CLARIFY(%q), want single %s op", d.ClarifyPrompt, tag)
	}
	if len(d.Operations) != 1 {
		t.Fatalf("got %d operations, want 1", len(d.Operations))
	}
	if d.Operations[0].Tag != tag {
		t.Fatalf("got tag %s, want %s", d.Operations[0].Tag, tag)
	}
}

func TestValidate_ExplicitCount(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := models.Signals{Count: true}
	ev := models.Evidence{DBCount: 2}
	d := validate(t, "how many SBI credit cards", scope, sig, ev)
	wantSingleOp(t, d, models.OpCount)
}

func TestValidate_CountWithZeroEvidenceFallsThroughToClarify(t *testing.T) {
	// db_count not >= 1: rule 3 does not fire. Category resolved but no
	// bank: implicit-LIST rule 5 asks for the bank.
	scope := models.Scope{Category: "Credit Card", ScopeStrength: models.ScopeOne}
	sig := models.Signals{Count: true}
	ev := models.Evidence{DBCount: 0}
	d := validate(t, "how many credit cards", scope, sig, ev)
	if !d.IsClarify() {
		t.Fatalf("expected CLARIFY, got %+v", d)
	}
}

func TestValidate_ExplicitList(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := models.Signals{List: true}
	ev := models.Evidence{DBCount: 2}
	d := validate(t, "list SBI credit cards", scope, sig, ev)
	wantSingleOp(t, d, models.OpList)
}

func TestValidate_ImplicitListSmartFork(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	d := validate(t, "SBI credit cards", scope, models.Signals{}, models.Evidence{DBCount: 2})
	wantSingleOp(t, d, models.OpList)
}

func TestValidate_ImplicitListWithoutBankAsksForBank(t *testing.T) {
	scope := models.Scope{Category: "Credit Card", ScopeStrength: models.ScopeOne}
	d := validate(t, "credit cards", scope, models.Signals{}, models.Evidence{DBCount: models.UnknownCount})
	if !d.IsClarify() {
		t.Fatalf("expected CLARIFY, got %+v", d)
	}
	if d.ClarifyPrompt == "" || !contains(d.ClarifyPrompt, "bank") {
		t.Fatalf("expected a bank-asking prompt, got %q", d.ClarifyPrompt)
	}
}

func TestValidate_ExplainProduct(t *testing.T) {
	scope := models.Scope{Bank: "SBI", ProductName: "SBI Prime Credit Card", ScopeStrength: models.ScopeOne}
	sig := models.Signals{Explain: true}
	d := validate(t, "explain the SBI Prime Credit Card", scope, sig, models.Evidence{DBCount: 1})
	wantSingleOp(t, d, models.OpExplain)
}

func TestValidate_ExplainAll(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := models.Signals{ExplainAll: true}
	d := validate(t, "explain all SBI credit cards", scope, sig, models.Evidence{DBCount: 2})
	wantSingleOp(t, d, models.OpExplainAll)
}

func TestValidate_CompareTwoBanks(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", AltBanks: []string{"HDFC"}, ScopeStrength: models.ScopeComplete}
	sig := models.Signals{Compare: true}
	d := validate(t, "compare SBI and HDFC credit cards", scope, sig, models.Evidence{})
	wantSingleOp(t, d, models.OpCompare)
}

func TestValidate_CompareSingleBankBecomesExplainAll(t *testing.T) {
	// Open question resolution (spec.md §9): COMPARE naming exactly one
	// bank proceeds as EXPLAIN_ALL rather than CLARIFY.
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := models.Signals{Compare: true}
	d := validate(t, "compare SBI credit cards", scope, sig, models.Evidence{})
	wantSingleOp(t, d, models.OpExplainAll)
}

func TestValidate_Recommend(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := models.Signals{Recommend: true}
	d := validate(t, "which SBI credit card is best", scope, sig, models.Evidence{})
	wantSingleOp(t, d, models.OpRecommend)
}

func TestValidate_AmbiguousScopeWithoutCompareSignal(t *testing.T) {
	scope := models.Scope{Bank: "SBI", AltBanks: []string{"HDFC"}, ScopeStrength: models.ScopeOne}
	d := validate(t, "SBI and HDFC", scope, models.Signals{}, models.Evidence{})
	if !d.IsClarify() {
		t.Fatalf("expected CLARIFY, got %+v", d)
	}
	if !contains(d.ClarifyPrompt, "SBI") || !contains(d.ClarifyPrompt, "HDFC") {
		t.Fatalf("expected both bank names in the prompt, got %q", d.ClarifyPrompt)
	}
}

func TestValidate_CompareTwoBanksWithoutCategoryAsksForCategory(t *testing.T) {
	// "compare SBI and HDFC" — both banks are named unambiguously, so
	// what's missing is the category, not the bank. Must not fall into
	// the AmbiguousScope prompt, which would ask the user to pick one
	// bank they already both named.
	scope := models.Scope{Bank: "SBI", AltBanks: []string{"HDFC"}, ScopeStrength: models.ScopeOne}
	d := validate(t, "compare SBI and HDFC", scope, models.Signals{Compare: true}, models.Evidence{})
	if !d.IsClarify() {
		t.Fatalf("expected CLARIFY, got %+v", d)
	}
	if !contains(d.ClarifyPrompt, "product type") {
		t.Fatalf("expected a category-asking prompt, got %q", d.ClarifyPrompt)
	}
}

func TestValidate_NonProductTargetAsFAQ(t *testing.T) {
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := Extract("how many steps to apply for an SBI credit card")
	d := validate(t, "how many steps to apply for an SBI credit card", scope, sig, models.Evidence{})
	wantSingleOp(t, d, models.OpFAQ)
}

func TestValidate_NonProductTargetSplitsOnConjunction(t *testing.T) {
	utterance := "how many SBI credit cards and how to apply for one"
	scope := models.Scope{Bank: "SBI", Category: "Credit Card", ScopeStrength: models.ScopeComplete}
	sig := Extract(utterance)
	d := validate(t, utterance, scope, sig, models.Evidence{DBCount: 2})

	if d.IsClarify() {
		t.Fatalf("expected a split decision, got CLARIFY(%q)", d.ClarifyPrompt)
	}
	if len(d.Operations) != 2 {
		t.Fatalf("got %d operations, want 2", len(d.Operations))
	}
	if d.Operations[0].Tag != models.OpCount || d.Operations[1].Tag != models.OpFAQ {
		t.Fatalf("got tags %s/%s, want COUNT/FAQ", d.Operations[0].Tag, d.Operations[1].Tag)
	}
	if !d.Operations[1].SuppressGreeting {
		t.Fatal("expected the second split operation to suppress greeting framing")
	}
}

func TestValidate_FAQByEvidence(t *testing.T) {
	scope := models.Scope{}
	ev := models.Evidence{FAQTopSimilarity: 0.85}
	d := validate(t, "minimum balance requirement for a savings account", scope, models.Signals{}, ev)
	wantSingleOp(t, d, models.OpFAQ)
}

func TestValidate_FAQBelowThresholdFallsToLLM(t *testing.T) {
	scope := models.Scope{}
	ev := models.Evidence{FAQTopSimilarity: 0.30}
	d := validate(t, "what's the weather like today", scope, models.Signals{}, ev)
	wantSingleOp(t, d, models.OpLLMFallback)
}

func TestValidate_BareScopeClarifies(t *testing.T) {
	scope := models.Scope{Bank: "SBI", ScopeStrength: models.ScopeOne}
	d := validate(t, "SBI", scope, models.Signals{}, models.Evidence{})
	if !d.IsClarify() {
		t.Fatalf("expected CLARIFY, got %+v", d)
	}
	if !contains(d.ClarifyPrompt, "product type") {
		t.Fatalf("expected a category-asking prompt, got %q", d.ClarifyPrompt)
	}
}

func TestValidate_ListWithUnresolvedScopeAsksForBankFirst(t *testing.T) {
	// "list cards" — generic "cards" does not resolve to a category
	// (documented limitation, DESIGN.md), so scope is entirely empty.
	// Rule 4's under-specified-scope branch must still ask for the bank
	// first rather than a vague restatement.
	d := validate(t, "list cards", models.Scope{}, models.Signals{List: true}, models.Evidence{})
	if !d.IsClarify() {
		t.Fatalf("expected CLARIFY, got %+v", d)
	}
	if !contains(d.ClarifyPrompt, "bank") {
		t.Fatalf("expected a bank-asking prompt, got %q", d.ClarifyPrompt)
	}
}

func TestValidate_LLMFallback(t *testing.T) {
	d := validate(t, "why is the sky blue", models.Scope{}, models.Signals{}, models.Evidence{})
	wantSingleOp(t, d, models.OpLLMFallback)
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
