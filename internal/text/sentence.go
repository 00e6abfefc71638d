package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations suppress a sentence break after their trailing dot
// Keys are lower-case and include the dot
var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true,
	"jr.": true, "sr.": true, "st.": true, "hon.": true,
	"inc.": true, "ltd.": true, "llc.": true, "corp.": true, "co.": true,
	"no.": true, "nos.": true, "art.": true, "sec.": true, "secs.": true,
	"para.": true, "cl.": true, "ch.": true, "pp.": true, "p.": true,
	"vol.": true, "ed.": true, "fig.": true, "approx.": true, "est.": true,
	"e.g.": true, "i.e.": true, "etc.": true, "cf.": true, "viz.": true,
	"vs.": true, "v.": true, "et al.": true, "al.": true,
	"u.s.": true, "u.k.": true, "u.s.c.": true, "c.f.r.": true,
	"jan.": true, "feb.": true, "mar.": true, "apr.": true, "jun.": true,
	"jul.": true, "aug.": true, "sep.": true, "sept.": true, "oct.": true,
	"nov.": true, "dec.": true,
}

// RuleSegmenter is the default Segmenter
//
// A sentence ends after a cluster of terminal punctuation (. ! ? …),
// optionally followed by closing quotes or brackets, when whitespace and
// then a rune other than a lower-case letter follow. A dot ending a known
// abbreviation or a single-letter initial never ends a sentence. A blank
// line always ends a sentence. Whitespace after a break stays with the
// sentence it follows, so raw spans partition the input
type RuleSegmenter struct {
	tokenizer Tokenizer
}

// NewSegmenter creates a RuleSegmenter that tokenizes every sentence with tok
func NewSegmenter(tok Tokenizer) *RuleSegmenter {
	if tok == nil {
		tok = NewTokenizer(nil)
	}
	return &RuleSegmenter{tokenizer: tok}
}

// Segment splits s into sentences
// Empty or whitespace-only input yields nil
func (g *RuleSegmenter) Segment(s string) []Sentence {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	bounds := breaks(s)
	sentences := make([]Sentence, 0, len(bounds)+1)
	start := 0
	for _, end := range append(bounds, len(s)) {
		if end <= start {
			continue
		}
		raw := s[start:end]
		tokens := g.tokenizer.Tokenize(raw)
		for i := range tokens {
			tokens[i].Start += start
			tokens[i].End += start
		}
		sentences = append(sentences, Sentence{
			Index:  len(sentences),
			Text:   strings.TrimSpace(raw),
			Start:  start,
			End:    end,
			Tokens: tokens,
		})
		start = end
	}
	return sentences
}

// breaks returns the byte offsets at which new sentences start
func breaks(s string) []int {
	var out []int
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])

		if r == '\n' {
			j := skipInlineSpace(s, i+size)
			if j < len(s) && s[j] == '\n' {
				k := skipSpace(s, j)
				if k < len(s) && hasText(s[:i]) {
					out = appendBreak(out, k)
				}
				i = k
				continue
			}
			i += size
			continue
		}

		if isTerminal(r) {
			j := i + size
			for j < len(s) {
				nr, ns := utf8.DecodeRuneInString(s[j:])
				if !isTerminal(nr) {
					break
				}
				j += ns
			}
			single := r == '.' && j == i+size
			for j < len(s) {
				nr, ns := utf8.DecodeRuneInString(s[j:])
				if !isCloser(nr) {
					break
				}
				j += ns
			}
			if single && isAbbreviation(s, i) {
				i = j
				continue
			}
			k := skipSpace(s, j)
			if k > j && k < len(s) {
				next, _ := utf8.DecodeRuneInString(s[k:])
				if !unicode.IsLower(next) {
					out = appendBreak(out, k)
				}
			}
			i = j
			continue
		}

		i += size
	}
	return out
}

func appendBreak(out []int, pos int) []int {
	if len(out) > 0 && out[len(out)-1] >= pos {
		return out
	}
	return append(out, pos)
}

// isAbbreviation reports whether the dot at dotPos closes an abbreviation
func isAbbreviation(s string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := s[start:dotPos]
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(word)
		return unicode.IsUpper(r)
	}
	candidate := strings.ToLower(word) + "."
	if abbreviations[candidate] {
		return true
	}
	// "et al."
	if candidate == "al." && start >= 3 && strings.EqualFold(s[start-3:start], "et ") {
		return true
	}
	return false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '}', '»':
		return true
	}
	return false
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

func skipInlineSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	return i
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
