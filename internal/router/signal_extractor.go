package router

import (
	"context"
	"regexp"
	"strings"

	"github.com/txplain/bankrouter/internal/models"
)

// signalExtractor implements spec.md §4.2: a fixed, ordered rule table
// mapping lexical cues to boolean signal flags. It is a leaf stage, pure
// over the utterance text.
type signalExtractor struct{}

func newSignalExtractor() *signalExtractor { return &signalExtractor{} }

func (s *signalExtractor) Name() string            { return "signal_extractor" }
func (s *signalExtractor) Dependencies() []string { return nil }

func (s *signalExtractor) Process(_ context.Context, b *Baggage) error {
	b.Signals = Extract(b.Utterance)
	return nil
}

var countCues = []string{"how many", "count", "number of", "total"}
var listCues = []string{"list", "show", "display", "what are", "give me all"}
var explainAllCues = []string{"explain all", "describe all", "each of the"}
var explainCues = []string{"explain", "tell me about", "details of", "what is"}
var compareCues = []string{"compare", "vs", "versus", "difference between"}
var recommendCues = []string{"best", "recommend", "which is better", "suitable for", "good for"}

// quantityCues additionally include "how much", which only matters for
// disambiguating non-product targets ("how much time", "how much does it
// cost to apply"), not for the count signal itself.
var quantityCues = append(append([]string{}, countCues...), "how much")

var nonProductNouns = []string{
	"step", "steps", "document", "documents", "process", "procedure", "way",
	"apply", "application", "close", "block", "withdraw", "open",
}

var conjunctionPattern = regexp.MustCompile(`\s+and\s+|;|\s+\+\s+|\s+also\s+|\s+plus\s+`)

// Extract derives Signals from a raw utterance, following the ordered
// rule table in spec.md §4.2.
func Extract(utterance string) models.Signals {
	lower := strings.ToLower(utterance)

	sig := models.Signals{
		Count:      containsAny(lower, countCues),
		List:       containsAny(lower, listCues),
		ExplainAll: containsAny(lower, explainAllCues),
		Compare:    containsAny(lower, compareCues),
		Recommend:  containsAny(lower, recommendCues),
	}
	// explain_all implies the "explain" lexical family but is reported
	// as its own flag; explain itself only fires when explain_all did
	// not already claim the cue, so "explain all" is not double-counted
	// as a lone EXPLAIN on a single product.
	sig.Explain = !sig.ExplainAll && containsAny(lower, explainCues)

	if loc := conjunctionPattern.FindStringIndex(lower); loc != nil {
		sig.HasConjunction = true
		sig.ConjunctionAt = loc[0]
	}

	sig.NonProductTarget = extractNonProductTargets(lower)

	return sig
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// extractNonProductTargets fires only when a non-product noun is the
// object of a count/quantity cue — i.e. it appears anywhere after a
// "how many"/"how much"/"number of"/"count"/"total" cue in the
// utterance. This is the critical disambiguator from spec.md §4.2: "how
// many steps" must not become COUNT.
func extractNonProductTargets(lower string) []string {
	cueEnd := -1
	for _, cue := range quantityCues {
		if idx := strings.Index(lower, cue); idx >= 0 {
			end := idx + len(cue)
			if cueEnd == -1 || idx < cueEnd {
				cueEnd = end
			}
		}
	}
	if cueEnd == -1 {
		return nil
	}

	tail := lower[cueEnd:]
	found := make([]string, 0)
	seen := make(map[string]bool)
	for _, noun := range nonProductNouns {
		if wordBoundaryContains(tail, noun) && !seen[noun] {
			found = append(found, noun)
			seen[noun] = true
		}
	}
	return found
}

func wordBoundaryContains(text, word string) bool {
	pattern := `(?:^|[^a-z])` + regexp.QuoteMeta(word) + `(?:$|[^a-z])`
	matched, _ := regexp.MatchString(pattern, text)
	return matched
}
