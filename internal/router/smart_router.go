// Package router implements the Smart Router (spec.md §2, §4, §9): the
// full pipeline from a raw utterance to a RoutingDecision — Follow-up
// Resolver, Scope Resolver, Signal Extractor, Evidence Retriever,
// Operation Validator, and the Conversation State commit, wired together
// behind a single entry point.
package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/txplain/bankrouter/internal/faqindex"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/registry"
	"github.com/txplain/bankrouter/internal/session"
	"github.com/txplain/bankrouter/internal/store"
)

var tracer = otel.Tracer("github.com/txplain/bankrouter/internal/router")

// Router ties the Context's dependencies to the fixed pipeline. It holds
// no per-request state; every method is safe for concurrent use.
//
// leaves runs Scope Resolver and Signal Extractor — mutually independent,
// scheduled together by the DAG. Evidence Retriever is invoked
// separately, after leaves, because spec.md §4.5 step 3 requires the
// context-bank inheritance decision (which needs Signals, to withhold
// inheritance from COMPARE/RECOMMEND) to land in Scope before Evidence
// Retriever runs — a scope mutation the generic Stage/Baggage pipeline
// has no hook for.
type Router struct {
	rc       *Context
	leaves   *requestPipeline
	evidence *evidenceRetriever
	audit    *auditLog
}

// New builds a Router over the given Context. It panics only on a
// programming error (a stage dependency cycle), never on a runtime
// condition.
func New(rc *Context) *Router {
	leaves, err := newRequestPipeline(
		newScopeResolver(rc.Registry),
		newSignalExtractor(),
	)
	if err != nil {
		panic(err)
	}
	return &Router{
		rc:       rc,
		leaves:   leaves,
		evidence: newEvidenceRetriever(rc.ProductStore, rc.FAQIndex, rc.EvidenceDeadline, rc.Logger),
		audit:    newAuditLog(200),
	}
}

// Route is the router's sole entry point (spec.md §6's POST /route).
func (r *Router) Route(ctx context.Context, req models.RouteRequest) models.RoutingDecision {
	ctx, span := tracer.Start(ctx, "Route")
	defer span.End()

	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, r.rc.RequestDeadline)
	defer cancel()

	decision := r.route(ctx, req, requestID)
	decision.Debug.RequestID = requestID
	r.audit.record(requestID, decision)
	return decision
}

// ExplainDecision returns a previously-audited decision by request ID,
// for the operator-facing "why did it do that" surface (spec.md §12).
func (r *Router) ExplainDecision(requestID string) (models.RoutingDecision, bool) {
	return r.audit.lookup(requestID)
}

func (r *Router) route(ctx context.Context, req models.RouteRequest, requestID string) models.RoutingDecision {
	trimmed := strings.ToLower(strings.TrimSpace(req.Utterance))
	if _, isGreeting := r.rc.GreetingSet[trimmed]; isGreeting {
		return models.RoutingDecision{
			Operations:    []models.Operation{{Tag: models.OpClarify}},
			ClarifyPrompt: "Hi! Ask me about a bank's products, counts, comparisons, or how to apply.",
		}
	}

	// EmptyRegistry (spec.md §7): with no banks known at all, every
	// entity-dependent rule downstream is meaningless, so short-circuit
	// to CLARIFY with the ingestion-incomplete hint rather than letting
	// the utterance fall through to LLM_FALLBACK.
	if err := r.rc.Registry.EnsureFresh(ctx); err != nil {
		r.rc.Logger.Warn().Err(err).Msg("entity registry refresh failed, routing against the last loaded set")
	}
	if r.rc.Registry.IsEmpty() {
		rerr := models.NewRouterError(models.ErrEmptyRegistry, "routing against an empty entity registry", nil)
		r.rc.Logger.Warn().Err(rerr).Msg("entity registry is empty, short-circuiting to clarify")
		return models.RoutingDecision{
			Operations:    []models.Operation{{Tag: models.OpClarify}},
			ClarifyPrompt: missingBankPrompt(r.rc.Registry),
		}
	}

	last, err := r.rc.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		r.rc.Logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("conversation state lookup failed, treating as empty")
	}

	followUp := ResolveFollowUp(req.Utterance, last, r.rc.Registry)
	if followUp.ClarifyNow != "" {
		return models.RoutingDecision{
			Operations:    []models.Operation{{Tag: models.OpClarify}},
			ClarifyPrompt: followUp.ClarifyNow,
		}
	}

	utterance := req.Utterance
	rewritten := ""
	if followUp.Rewritten != "" {
		utterance = followUp.Rewritten
		rewritten = followUp.Rewritten
	}

	b := &Baggage{
		SessionID:         req.SessionID,
		OriginalUtterance: req.Utterance,
		Utterance:         utterance,
		ContextBank:       last.LastBank,
	}

	if err := r.leaves.Execute(ctx, b); err != nil {
		r.rc.Logger.Error().Err(err).Msg("request pipeline failed")
		return r.timeoutOrInternalDecision(ctx, rewritten)
	}

	// Context-bank inheritance (spec.md §4.5 step 3): an unresolved bank
	// inherits the conversation's last bank, but never for COMPARE/
	// RECOMMEND, which require an explicit bank to be meaningful.
	if !b.Scope.HasBank() && b.ContextBank != "" && !b.Signals.Compare && !b.Signals.Recommend {
		b.Scope.Bank = b.ContextBank
		b.Scope.ScopeStrength = models.StrengthFor(true, b.Scope.HasCategory())
	}

	b.Evidence = r.evidence.Retrieve(ctx, b.Scope, b.Utterance)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return r.timeoutOrInternalDecision(ctx, rewritten)
	}

	var decision models.RoutingDecision
	if followUp.ForcedIntent != "" {
		decision = models.RoutingDecision{
			Operations: []models.Operation{{
				Tag:                followUp.ForcedIntent,
				Scope:              b.Scope,
				Evidence:           b.Evidence,
				RewrittenUtterance: rewritten,
			}},
		}
	} else {
		decision = Validate(validatorInput{
			Utterance: b.Utterance,
			Scope:     b.Scope,
			Signals:   b.Signals,
			Evidence:  b.Evidence,
			Threshold: r.rc.FAQSimilarityThreshold,
			Registry:  r.rc.Registry,
		})
		if rewritten != "" && len(decision.Operations) > 0 {
			decision.Operations[0].RewrittenUtterance = rewritten
		}
	}

	decision.RewrittenUtterance = rewritten
	decision.Debug = models.DebugInfo{
		Signals:   b.Signals,
		Evidence:  b.Evidence,
		Rewritten: rewritten,
	}
	r.rc.Logger.Debug().
		Interface("signals", b.Signals).
		Interface("evidence", b.Evidence).
		Interface("decision", decision.Operations).
		Str("clarify_prompt", decision.ClarifyPrompt).
		Msg("routing decision")

	if !decision.IsClarify() {
		r.commitTurn(ctx, req.SessionID, utterance, decision)
	}
	return decision
}

// commitTurn persists the turn that just produced a non-CLARIFY
// decision. For a LIST operation it re-fetches the resolved product
// names so the follow-up resolver's ordinal rule has something to index
// into on the next turn.
func (r *Router) commitTurn(ctx context.Context, sessionID, utterance string, decision models.RoutingDecision) {
	if len(decision.Operations) == 0 {
		return
	}
	op := decision.Operations[0]

	var productList []string
	if op.Tag == models.OpList && op.Scope.HasBank() && op.Scope.HasCategory() {
		if recs, err := r.rc.ProductStore.List(ctx, op.Scope.Bank, op.Scope.Category); err == nil {
			for _, rec := range recs {
				productList = append(productList, rec.Name)
			}
		}
	}

	err := r.rc.Sessions.WithLock(ctx, sessionID, func(_ models.LastTurn) (models.LastTurn, error) {
		return models.LastTurn{
			SessionID:       sessionID,
			LastIntent:      string(op.Tag),
			LastBank:        op.Scope.Bank,
			LastCategory:    op.Scope.Category,
			LastProductList: productList,
			LastUtterance:   utterance,
			UpdatedAt:       time.Now(),
		}, nil
	})
	if err != nil {
		r.rc.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to commit conversation turn")
	}
}

func (r *Router) timeoutOrInternalDecision(ctx context.Context, rewritten string) models.RoutingDecision {
	prompt := "That took longer than expected — could you try asking again?"
	return models.RoutingDecision{
		Operations:         []models.Operation{{Tag: models.OpClarify}},
		ClarifyPrompt:      prompt,
		RewrittenUtterance: rewritten,
	}
}

// NewContext is a convenience constructor bundling the Context fields a
// caller assembles once at process startup.
func NewContext(
	ps store.ProductStore,
	faq faqindex.FAQIndex,
	reg *registry.Registry,
	sessions session.Store,
	logger zerolog.Logger,
	faqThreshold float64,
	evidenceDeadline, requestDeadline time.Duration,
) *Context {
	return &Context{
		ProductStore:           ps,
		FAQIndex:               faq,
		Registry:               reg,
		Sessions:               sessions,
		Logger:                 logger,
		FAQSimilarityThreshold: faqThreshold,
		EvidenceDeadline:       evidenceDeadline,
		RequestDeadline:        requestDeadline,
		GreetingSet: map[string]struct{}{
			"hi": {}, "hello": {}, "hey": {}, "hi there": {},
			"good morning": {}, "good afternoon": {}, "good evening": {},
		},
	}
}
