package analysis

import (
	"slices"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// Lexicon is an immutable set of lower-case risk terms
type Lexicon struct {
	terms map[string]struct{}
	list  []string // sorted
}

// NewLexicon builds a lexicon from terms
// Entries are lower-cased and trimmed; blanks and duplicates are dropped
func NewLexicon(terms ...string) *Lexicon {
	l := &Lexicon{terms: make(map[string]struct{}, len(terms))}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, dup := l.terms[term]; dup {
			continue
		}
		l.terms[term] = struct{}{}
		l.list = append(l.list, term)
	}
	slices.Sort(l.list)
	return l
}

// DefaultLexicon returns the built-in risk lexicon
func DefaultLexicon() *Lexicon {
	return NewLexicon(model.DefaultRiskTerms()...)
}

// Contains reports whether the normalized word is a risk term
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.terms[word]
	return ok
}

// Terms returns the terms in lexical order
func (l *Lexicon) Terms() []string {
	return slices.Clone(l.list)
}

// Len returns the number of terms
func (l *Lexicon) Len() int {
	return len(l.list)
}
