package router

import (
	"fmt"

	"github.com/dustin/go-humanize/english"

	"github.com/txplain/bankrouter/internal/models"
)

// Prompt templates for spec.md §4.7. Each is determined purely by which
// dimension is missing; none of them depends on the utterance text.

func missingBankPrompt(reg bankLister) string {
	top := reg.TopBanks(5)
	if len(top) == 0 {
		return "Which bank? (no banks are known yet — ingestion may be incomplete)"
	}
	return fmt.Sprintf("Which bank? Known banks: %s.", english.OxfordWordSeries(top, "and"))
}

func missingCategoryPrompt() string {
	return "Which product type? (credit card, debit card, loan, scheme)"
}

func vaguePrompt() string {
	return "Could you be more specific — a bank, a product category, or a specific question?"
}

func ordinalOutOfRangePrompt(n int) string {
	return fmt.Sprintf("I only have %d %s in the last list.", n, english.PluralWord(n, "item", "items"))
}

func noPriorListPrompt() string {
	return "I don't have a prior list to refer to — could you ask your question directly?"
}

func ambiguousScopePrompt(banks []string) string {
	return fmt.Sprintf("Did you mean %s? Please specify one bank.", english.OxfordWordSeries(banks, "or"))
}

// missingDimensionPrompt picks the right template for a scope that is
// bare or empty. Bank takes priority: an utterance with a list/count
// signal but no resolved scope at all ("list cards") asks for the bank
// first, the most fundamental missing dimension, rather than a vague
// restatement.
func missingDimensionPrompt(scope models.Scope, reg bankLister) string {
	switch {
	case !scope.HasBank():
		return missingBankPrompt(reg)
	case !scope.HasCategory():
		return missingCategoryPrompt()
	default:
		return vaguePrompt()
	}
}
