package router

import (
	"strings"

	"github.com/txplain/bankrouter/internal/models"
)

// validatorInput bundles what the 9-step decision procedure needs: the
// resolved scope (with any conversation-context bank already folded in
// by the smart-router facade), extracted signals, gathered evidence, and
// the utterance (for splitting a multi-op clause).
type validatorInput struct {
	Utterance string
	Scope     models.Scope
	Signals   models.Signals
	Evidence  models.Evidence
	Threshold float64
	Registry  bankLister
}

// bankLister is the minimal registry surface the validator needs for
// CLARIFY prompt construction (spec.md §4.7's "top-5 registry entries").
type bankLister interface {
	TopBanks(n int) []string
}

// Validate runs the operation validator's decision procedure (spec.md
// §4.4), evaluated top-to-bottom with early return.
func Validate(in validatorInput) models.RoutingDecision {
	s, e, scope := in.Signals, in.Evidence, in.Scope

	// 1. Non-product target override.
	if s.HasNonProductTarget() {
		if s.HasConjunction && s.Count && countTargetsProduct(in.Utterance, s.ConjunctionAt) {
			return splitCountFAQ(in, scope)
		}
		return single(models.Operation{Tag: models.OpFAQ, Scope: scope, Evidence: e, Clause: in.Utterance})
	}

	// 2. Compare/Recommend priority over Count.
	if s.Compare && scope.HasCategory() && scope.HasBank() {
		if len(scope.AltBanks) == 0 {
			// Open question (spec.md §9): COMPARE naming exactly one
			// bank proceeds as EXPLAIN_ALL of the category filtered to
			// that bank, rather than CLARIFY.
			return single(models.Operation{Tag: models.OpExplainAll, Scope: scope, Evidence: e})
		}
		return single(models.Operation{Tag: models.OpCompare, Scope: scope, Evidence: e})
	}
	if s.Recommend && scope.HasCategory() && scope.HasBank() {
		return single(models.Operation{Tag: models.OpRecommend, Scope: scope, Evidence: e})
	}
	// A compare/recommend signal with two or more banks named but no
	// category is missing its category, not ambiguous about which bank
	// the user means — they already named both. Ask for the category
	// rather than falling into the AmbiguousScope check below.
	if (s.Compare || s.Recommend) && !scope.HasCategory() {
		return clarifyDecision(missingCategoryPrompt(), e)
	}

	// AmbiguousScope (spec.md §7): two or more banks mentioned, no
	// compare/recommend signal to disambiguate intent.
	if !s.Compare && !s.Recommend && len(scope.AltBanks) > 0 {
		banks := append([]string{scope.Bank}, scope.AltBanks...)
		return clarifyDecision(ambiguousScopePrompt(banks), e)
	}

	// 3. Explicit COUNT.
	if s.Count && e.CountAtLeastOne() && scope.ScopeStrength >= models.ScopeOne {
		return single(models.Operation{Tag: models.OpCount, Scope: scope, Evidence: e})
	}

	// 4. Explicit LIST.
	if s.List {
		if e.CountAtLeastOne() {
			return single(models.Operation{Tag: models.OpList, Scope: scope, Evidence: e})
		}
		if scope.ScopeStrength < models.ScopeOne {
			return clarifyDecision(missingDimensionPrompt(scope, in.Registry), e)
		}
		// Known scope but zero/unknown count: fall through — neither
		// COUNT nor LIST is warranted, later rules may still apply
		// (e.g. an EXPLAIN_ALL phrasing, an FAQ match, or fallback).
	}

	// 5. Implicit LIST (the "Smart Fork"). By this point the smart-
	// router facade has already folded a conversation-context bank into
	// scope (spec.md §4.5 step 3), so a resolved category with no
	// explicit list signal emits LIST whenever a bank is known —
	// whichever way it was resolved — and CLARIFY otherwise. An
	// explain/explain-all signal takes priority over this fallback, so
	// it is excluded here and handled by rule 6 below.
	if !s.List && !s.Explain && !s.ExplainAll && scope.HasCategory() {
		if scope.HasBank() {
			return single(models.Operation{Tag: models.OpList, Scope: scope, Evidence: e})
		}
		return clarifyDecision(missingBankPrompt(in.Registry), e)
	}

	// 6. EXPLAIN / EXPLAIN_ALL.
	if s.Explain && scope.HasProductName() {
		return single(models.Operation{Tag: models.OpExplain, Scope: scope, Evidence: e})
	}
	if s.ExplainAll && scope.HasCategory() {
		return single(models.Operation{Tag: models.OpExplainAll, Scope: scope, Evidence: e})
	}

	// 7. FAQ by evidence.
	if e.FAQTopSimilarity >= in.Threshold {
		return single(models.Operation{Tag: models.OpFAQ, Scope: scope, Evidence: e, Clause: in.Utterance})
	}

	// 8. Bare-scope clarification.
	if scope.IsBare() && !anySignal(s) {
		return clarifyDecision(missingDimensionPrompt(scope, in.Registry), e)
	}

	// 9. LLM fallback.
	return single(models.Operation{Tag: models.OpLLMFallback, Scope: scope, Evidence: e, Clause: in.Utterance})
}

func anySignal(s models.Signals) bool {
	return s.Count || s.List || s.Explain || s.ExplainAll || s.Compare || s.Recommend
}

// countTargetsProduct reports whether the clause before the conjunction
// (the count clause) is itself free of non-product nouns — i.e. the
// count genuinely targets a product, and the non-product noun lives in
// the clause after the conjunction. This is what makes rule 1's split
// meaningful: "how many SBI cards and how to apply" splits cleanly,
// because "how many SBI cards" has no non-product noun of its own.
func countTargetsProduct(utterance string, conjunctionAt int) bool {
	if conjunctionAt <= 0 || conjunctionAt > len(utterance) {
		return false
	}
	before := strings.ToLower(utterance[:conjunctionAt])
	for _, noun := range nonProductNouns {
		if wordBoundaryContains(before, noun) {
			return false
		}
	}
	return true
}

func splitCountFAQ(in validatorInput, scope models.Scope) models.RoutingDecision {
	at := in.Signals.ConjunctionAt
	countClause := strings.TrimSpace(in.Utterance[:at])
	faqClause := strings.TrimSpace(conjunctionPattern.ReplaceAllString(in.Utterance[at:], " "))

	return models.RoutingDecision{
		Operations: []models.Operation{
			{Tag: models.OpCount, Scope: scope, Evidence: in.Evidence, Clause: countClause},
			{Tag: models.OpFAQ, Scope: scope, Evidence: in.Evidence, Clause: faqClause, SuppressGreeting: true},
		},
	}
}

func single(op models.Operation) models.RoutingDecision {
	return models.RoutingDecision{Operations: []models.Operation{op}}
}

func clarifyDecision(prompt string, e models.Evidence) models.RoutingDecision {
	return models.RoutingDecision{
		Operations:    []models.Operation{{Tag: models.OpClarify, Evidence: e}},
		ClarifyPrompt: prompt,
	}
}
