package analysis

import (
	"slices"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/text"
)

// FrequencyTable counts normalized content words of a document
// Only alphabetic, non-stop tokens are counted
// The table is immutable after construction and safe for concurrent readers
type FrequencyTable struct {
	counts map[string]int
	order  []string // distinct words by first occurrence
	total  int
}

// BuildFrequencyTable counts the content words in tokens
// An empty token slice yields an empty table
func BuildFrequencyTable(tokens []text.Token) *FrequencyTable {
	t := &FrequencyTable{counts: make(map[string]int)}
	for _, tok := range tokens {
		if !tok.Alpha || tok.Stop {
			continue
		}
		if _, seen := t.counts[tok.Norm]; !seen {
			t.order = append(t.order, tok.Norm)
		}
		t.counts[tok.Norm]++
		t.total++
	}
	return t
}

// Count returns the count of a normalized word, 0 when absent
func (t *FrequencyTable) Count(word string) int {
	return t.counts[word]
}

// Len returns the number of distinct words
func (t *FrequencyTable) Len() int {
	return len(t.order)
}

// Total returns the number of counted tokens
func (t *FrequencyTable) Total() int {
	return t.total
}

// Map returns a copy of the counts
func (t *FrequencyTable) Map() map[string]int {
	out := make(map[string]int, len(t.counts))
	for w, c := range t.counts {
		out[w] = c
	}
	return out
}

// Ranked returns every word ordered by count descending
// Words with equal counts keep their first-occurrence order
func (t *FrequencyTable) Ranked() []model.WordCount {
	ranked := make([]model.WordCount, len(t.order))
	for i, w := range t.order {
		ranked[i] = model.WordCount{Word: w, Count: t.counts[w]}
	}
	slices.SortStableFunc(ranked, func(a, b model.WordCount) int {
		return b.Count - a.Count
	})
	return ranked
}
