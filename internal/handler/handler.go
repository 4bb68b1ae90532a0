// Package handler performs the post-routing synthesis step spec.md
// §1/§6 places outside the router's own scope: turning a committed
// Operation into a natural-language answer via the language-model
// client. The router decides WHAT to answer; this package decides HOW
// to phrase it, and only runs when an LLM client is configured at all
// (cmd/bankrouter wires it in only when an API key is present).
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/txplain/bankrouter/internal/cache"
	"github.com/txplain/bankrouter/internal/llmclient"
	"github.com/txplain/bankrouter/internal/models"
)

// Synthesizer turns a committed Operation into an answer string, caching
// by the operation's own shape so that two sessions asking the same
// resolved question within the TTL window share one LLM call.
type Synthesizer struct {
	llm   llmclient.Client
	cache cache.Cache
}

// New builds a Synthesizer. A nil cache.Cache disables memoization; llm
// must not be nil — callers gate construction on cfg.LLMAPIKey != "".
func New(llm llmclient.Client, c cache.Cache) *Synthesizer {
	return &Synthesizer{llm: llm, cache: c}
}

// Annotate fills in resp's per-operation Answer fields for every
// operation that warrants synthesis, in order. It never fails the
// request: an LLM error is logged by the caller (via the returned error
// slice length) and simply leaves that operation's Answer empty.
func (s *Synthesizer) Annotate(ctx context.Context, decision models.RoutingDecision, resp *models.RouteResponse) []error {
	var errs []error
	for i, op := range decision.Operations {
		if i >= len(resp.Operations) {
			break
		}
		if !warrantsSynthesis(op.Tag) {
			continue
		}
		answer, err := s.synthesize(ctx, op)
		if err != nil {
			errs = append(errs, fmt.Errorf("synthesize %s: %w", op.Tag, err))
			continue
		}
		resp.Operations[i].Answer = answer
	}
	return errs
}

func warrantsSynthesis(tag models.OperationTag) bool {
	switch tag {
	case models.OpExplain, models.OpExplainAll, models.OpCompare, models.OpRecommend,
		models.OpFAQ, models.OpLLMFallback:
		return true
	default:
		return false
	}
}

func (s *Synthesizer) synthesize(ctx context.Context, op models.Operation) (string, error) {
	key := cacheKey(op)
	if s.cache != nil {
		var cached string
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	answer, err := s.llm.Generate(ctx, prompt(op))
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, answer, cache.FAQResultTTLDuration)
	}
	return answer, nil
}

func cacheKey(op models.Operation) string {
	return fmt.Sprintf("synth:%s:%s:%s:%s", op.Tag, op.Scope.Bank, op.Scope.Category, op.Scope.ProductName)
}

// prompt builds the instruction handed to the language model per
// operation tag. It stays deliberately small: the scope and evidence
// already pinned down by the router are the facts, the model's job is
// only to phrase them for a user.
func prompt(op models.Operation) string {
	var b strings.Builder
	switch op.Tag {
	case models.OpExplain:
		fmt.Fprintf(&b, "Explain the %s from %s to a retail banking customer in two or three sentences.",
			op.Scope.ProductName, op.Scope.Bank)
	case models.OpExplainAll:
		fmt.Fprintf(&b, "Summarize the %s products offered by %s in a short paragraph.",
			op.Scope.Category, bankOrAnyBank(op.Scope.Bank))
	case models.OpCompare:
		banks := append([]string{op.Scope.Bank}, op.Scope.AltBanks...)
		fmt.Fprintf(&b, "Compare the %s offerings of %s, highlighting the key differences a customer would care about.",
			op.Scope.Category, strings.Join(banks, " vs "))
	case models.OpRecommend:
		fmt.Fprintf(&b, "Recommend a %s from %s and explain briefly why.", op.Scope.Category, op.Scope.Bank)
	case models.OpFAQ:
		if op.Evidence.FAQTopMetadata.Answer != "" {
			fmt.Fprintf(&b, "Rephrase this answer naturally for a chat reply: %q", op.Evidence.FAQTopMetadata.Answer)
		} else {
			fmt.Fprintf(&b, "Answer this banking question as helpfully as possible: %s", op.Clause)
		}
	case models.OpLLMFallback:
		fmt.Fprintf(&b, "A routing system could not classify this banking product question with confidence. Answer it directly: %s", op.Clause)
	}
	return b.String()
}

func bankOrAnyBank(bank string) string {
	if bank == "" {
		return "banks in the catalog"
	}
	return bank
}
