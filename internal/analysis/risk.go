package analysis

import (
	"slices"

	"github.com/ppiankov/legalens/internal/model"
)

// MatchRisks finds every lexicon term used as a whole token in doc
// Matching compares the lower-cased token with the term, so "Breach" matches
// "breach" but "breaches" and "finest" do not
// Matches come back in order of first occurrence; each carries its total count
// and the indexes of the sentences it appears in
func MatchRisks(doc *Document, lex *Lexicon) []model.RiskMatch {
	if lex == nil || lex.Len() == 0 {
		return nil
	}

	var matches []model.RiskMatch
	index := make(map[string]int)
	for _, s := range doc.Sentences {
		for _, tok := range s.Tokens {
			if !lex.Contains(tok.Norm) {
				continue
			}
			i, seen := index[tok.Norm]
			if !seen {
				i = len(matches)
				index[tok.Norm] = i
				matches = append(matches, model.RiskMatch{Term: tok.Norm})
			}
			m := &matches[i]
			m.Count++
			if n := len(m.Sentences); n == 0 || m.Sentences[n-1] != s.Index {
				m.Sentences = append(m.Sentences, s.Index)
			}
		}
	}
	return matches
}

// Risks returns the distinct lexicon terms found in doc
// The result is a set; it is sorted lexically only so that output is stable
func Risks(doc *Document, lex *Lexicon) []string {
	matches := MatchRisks(doc, lex)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Term
	}
	slices.Sort(out)
	return out
}
