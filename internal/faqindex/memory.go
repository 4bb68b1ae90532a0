package faqindex

import (
	"context"
	"sort"
	"strings"
)

// Entry is one FAQ row as ingested into the in-memory index.
type Entry struct {
	Bank     string
	Category string
	Question string
	Answer   string
	Keywords []string
}

// InMemoryIndex is a fuzzy-match fake/reference FAQIndex, scored the same
// way the teacher's RAGSearchService.calculateFuzzyMatch scores protocol
// and token RAG hits: weighted substring containment across question
// text and keywords, normalized into [0, 1]. It is the default
// implementation used in tests and local development without a live
// vector database.
type InMemoryIndex struct {
	entries []Entry
}

// NewInMemoryIndex builds an index from a fixed set of FAQ entries.
func NewInMemoryIndex(entries []Entry) *InMemoryIndex {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &InMemoryIndex{entries: cp}
}

const maxFuzzyScore = 0.8 + 0.6 + 0.2 + 0.1

func (idx *InMemoryIndex) TopK(_ context.Context, query string, k int) ([]Hit, error) {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" || k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		score := fuzzyMatch(queryLower, e)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{
			Similarity: score,
			Metadata: Metadata{
				Bank:     e.Bank,
				Category: e.Category,
				Question: e.Question,
				Answer:   e.Answer,
			},
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// fuzzyMatch scores a query against a FAQ entry. Containment of the whole
// query in the question text scores highest, whole-query containment in
// the answer scores next, keyword containment next, and per-word partial
// matches add a small bonus — then the raw score is capped at
// maxFuzzyScore (0.8+0.6+0.2+0.1 = 1.7, which leaves out the 0.4 answer
// term) and divided by it, so Similarity stays in [0, 1].
func fuzzyMatch(query string, e Entry) float64 {
	score := 0.0

	questionLower := strings.ToLower(e.Question)
	answerLower := strings.ToLower(e.Answer)

	if strings.Contains(questionLower, query) {
		score += 0.8
	}
	if strings.Contains(answerLower, query) {
		score += 0.4
	}
	for _, kw := range e.Keywords {
		if strings.Contains(strings.ToLower(kw), query) {
			score += 0.6
		}
	}

	for _, word := range strings.Fields(query) {
		if len(word) <= 2 {
			continue
		}
		if strings.Contains(questionLower, word) {
			score += 0.2
		}
		if strings.Contains(answerLower, word) {
			score += 0.1
		}
	}

	if score > maxFuzzyScore {
		score = maxFuzzyScore
	}
	return score / maxFuzzyScore
}
