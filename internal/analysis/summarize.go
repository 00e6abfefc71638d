package analysis

import (
	"slices"
	"strings"

	"github.com/ppiankov/legalens/internal/text"
)

// DefaultNumSentences is the summary length used when none is configured
const DefaultNumSentences = 5

// SentenceScore pairs a sentence with its frequency score
type SentenceScore struct {
	Sentence text.Sentence
	Score    int
}

// ScoreSentences scores every sentence of doc against table, in document order
// A sentence scores the sum of the table counts of all its tokens; stop words
// and punctuation are absent from the table and add 0
func ScoreSentences(doc *Document, table *FrequencyTable) []SentenceScore {
	scores := make([]SentenceScore, len(doc.Sentences))
	for i, s := range doc.Sentences {
		score := 0
		for _, tok := range s.Tokens {
			score += table.Count(tok.Norm)
		}
		scores[i] = SentenceScore{Sentence: s, Score: score}
	}
	return scores
}

// SelectSentences returns the min(n, len) highest-scoring sentences in document
// order
// Equal scores favour the earlier sentence
func SelectSentences(doc *Document, table *FrequencyTable, n int) []text.Sentence {
	n = clamp(n)
	scores := ScoreSentences(doc, table)
	slices.SortStableFunc(scores, func(a, b SentenceScore) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.Sentence.Index - b.Sentence.Index
	})
	if n > len(scores) {
		n = len(scores)
	}

	selected := make([]text.Sentence, n)
	for i := range n {
		selected[i] = scores[i].Sentence
	}
	slices.SortFunc(selected, func(a, b text.Sentence) int {
		return a.Index - b.Index
	})
	return selected
}

// Summarize returns an extractive summary of doc: the numSentences
// highest-scoring sentences in their original order, joined by a single space
// A document without sentences yields ""
func Summarize(doc *Document, numSentences int) string {
	return summarize(doc, BuildFrequencyTable(doc.Tokens()), numSentences)
}

func summarize(doc *Document, table *FrequencyTable, numSentences int) string {
	selected := SelectSentences(doc, table, numSentences)
	parts := make([]string, len(selected))
	for i, s := range selected {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
