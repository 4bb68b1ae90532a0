package models

// RouteRequest is the router's external input shape (spec.md §6).
type RouteRequest struct {
	SessionID string `json:"session_id"`
	Utterance string `json:"utterance"`
	Timestamp string `json:"timestamp"`
}

// RouteResponse is the router's external output shape (spec.md §6). It is
// a flattened view of RoutingDecision suited to JSON transport.
type RouteResponse struct {
	Operations    []OperationView `json:"operations"`
	ClarifyPrompt string          `json:"clarify_prompt,omitempty"`
	Debug         DebugInfo       `json:"debug"`
}

// OperationView is the wire representation of a single Operation. Answer
// is populated only when an LLM synthesizer is configured (spec.md §1's
// language-model client is an external collaborator, never required for
// a routing decision itself) — it is always empty on CLARIFY.
type OperationView struct {
	Tag                OperationTag `json:"tag"`
	Scope              Scope        `json:"scope"`
	RewrittenUtterance string       `json:"rewritten_utterance,omitempty"`
	Answer             string       `json:"answer,omitempty"`
}

// ToResponse flattens a RoutingDecision into its wire shape.
func (d RoutingDecision) ToResponse() RouteResponse {
	views := make([]OperationView, 0, len(d.Operations))
	for _, op := range d.Operations {
		views = append(views, OperationView{
			Tag:                op.Tag,
			Scope:              op.Scope,
			RewrittenUtterance: op.RewrittenUtterance,
		})
	}
	return RouteResponse{
		Operations:    views,
		ClarifyPrompt: d.ClarifyPrompt,
		Debug:         d.Debug,
	}
}
