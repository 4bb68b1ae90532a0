package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/registry"
)

// FollowUpResult is the Follow-up Resolver's output: an optional
// rewritten utterance plus an optional forced operation tag. Spec.md §9
// breaks the cycle between the resolver and the smart router by making
// this a pure function of (utterance, LastTurn, registry) with no
// back-reference to the router.
type FollowUpResult struct {
	Rewritten    string
	ForcedIntent models.OperationTag
	ClarifyNow   string // non-empty when the resolver itself must terminate in CLARIFY
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var ordinalPattern = regexp.MustCompile(
	`(?i)\b(?:the\s+)?(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last|#(\d+)|number\s+(\d+)|(\d+)(?:st|nd|rd|th))\b(?:\s+one)?`,
)

var listThemPattern = regexp.MustCompile(`(?i)^\s*(list|show)\s+(them|those|these)\s*$`)
var bareWhyHowPattern = regexp.MustCompile(`(?i)^\s*(why|how)\s*\??\s*$`)
var whatAboutPattern = regexp.MustCompile(`(?i)^\s*what about\s+(.+?)\s*\??\s*$`)

// ResolveFollowUp implements spec.md §4.6's 5 ordered rewrite rules. It
// does not perform arbitrary pronoun coreference — only these anchored
// cases.
func ResolveFollowUp(utterance string, last models.LastTurn, reg *registry.Registry) FollowUpResult {
	// Rule 1: ordinal reference against last_product_list.
	if loc := ordinalPattern.FindStringSubmatchIndex(utterance); loc != nil {
		if len(last.LastProductList) == 0 {
			return FollowUpResult{ClarifyNow: noPriorListPrompt()}
		}
		idx, ok := resolveOrdinalIndex(utterance, loc)
		if !ok {
			return FollowUpResult{ClarifyNow: ordinalOutOfRangePrompt(len(last.LastProductList))}
		}
		if idx == lastItemSentinel {
			idx = len(last.LastProductList) - 1
		}
		if idx < 0 || idx >= len(last.LastProductList) {
			return FollowUpResult{ClarifyNow: ordinalOutOfRangePrompt(len(last.LastProductList))}
		}
		name := last.LastProductList[idx]
		return FollowUpResult{
			Rewritten:    fmt.Sprintf("explain %s", name),
			ForcedIntent: models.OpExplain,
		}
	}

	// Rule 2: "list them" / "show them" after COUNT.
	if listThemPattern.MatchString(utterance) && last.LastIntent == string(models.OpCount) &&
		last.LastBank != "" && last.LastCategory != "" {
		return FollowUpResult{
			Rewritten:    fmt.Sprintf("list %s %s", last.LastBank, last.LastCategory),
			ForcedIntent: models.OpList,
		}
	}

	// Rule 3: bare "why"/"how"/"what about {X}" after EXPLAIN/COMPARE.
	if last.LastIntent == string(models.OpExplain) || last.LastIntent == string(models.OpCompare) ||
		last.LastIntent == string(models.OpExplainAll) {
		subject := followUpSubject(last)
		if subject != "" {
			if bareWhyHowPattern.MatchString(utterance) {
				return FollowUpResult{Rewritten: strings.TrimSpace(utterance) + " " + subject}
			}
			if m := whatAboutPattern.FindStringSubmatch(utterance); m != nil {
				return FollowUpResult{Rewritten: fmt.Sprintf("%s about %s", strings.TrimSpace(m[1]), subject)}
			}
		}
	}

	// Rule 4: context-only utterance (a known bank name, with a last
	// category already in memory).
	trimmed := strings.TrimSpace(utterance)
	if last.LastCategory != "" {
		if canonical, aliasLen, ok := reg.MatchLongestBank(strings.ToLower(trimmed)); ok && aliasLen == len(strings.ToLower(trimmed)) {
			return FollowUpResult{Rewritten: fmt.Sprintf("list %s %s", canonical, last.LastCategory)}
		}
	}

	// Rule 5: pass through unchanged.
	return FollowUpResult{}
}

func followUpSubject(last models.LastTurn) string {
	if last.LastProductList != nil && len(last.LastProductList) > 0 {
		return last.LastProductList[0]
	}
	if last.LastCategory != "" {
		return last.LastCategory
	}
	return ""
}

// lastItemSentinel is resolveOrdinalIndex's return value for "the last
// one", resolved against the actual list length by the caller.
const lastItemSentinel = -2

// resolveOrdinalIndex converts the matched ordinal text into a 0-based
// index into last_product_list.
func resolveOrdinalIndex(utterance string, loc []int) (int, bool) {
	matched := utterance[loc[0]:loc[1]]
	lower := strings.ToLower(matched)

	if strings.Contains(lower, "last") {
		return lastItemSentinel, true
	}
	for word, n := range ordinalWords {
		if strings.Contains(lower, word) {
			return n - 1, true
		}
	}
	digits := regexp.MustCompile(`\d+`).FindString(lower)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n - 1, true
}
