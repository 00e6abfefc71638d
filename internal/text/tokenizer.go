package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuleTokenizer is the default Tokenizer
//
// Whitespace separates tokens and is never emitted. A maximal run of
// letters, marks and digits forms one token; a run made only of letters
// and marks is alphabetic. Apostrophe suffixes ('s, 're, n't) become
// separate Clitic tokens. Repeated punctuation runes ("...") collapse into
// one token; every other rune is a token of its own
type RuleTokenizer struct {
	stop StopWords
}

// NewTokenizer creates a RuleTokenizer that marks stop words with stop
// A nil stop classifies nothing as a stop word
func NewTokenizer(stop StopWords) *RuleTokenizer {
	return &RuleTokenizer{stop: stop}
}

// Tokenize splits s into tokens
// It never fails: invalid UTF-8 bytes come back as Symbol tokens
func (t *RuleTokenizer) Tokenize(s string) []Token {
	if s == "" {
		return nil
	}

	tokens := make([]Token, 0, len(s)/5+1)
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])

		switch {
		case unicode.IsSpace(r):
			i += size

		case isApostrophe(r) && t.cliticAt(s, i, tokens):
			end := scanLetters(s, i+size)
			tokens = append(tokens, t.token(s, i, end, Clitic))
			i = end

		case isWordRune(r):
			end := scanWord(s, i)
			// "don't" -> "do" + "n't"
			if split := negationSplit(s, i, end); split > i {
				tokens = append(tokens, t.token(s, i, split, classify(s[i:split])))
				clitic := scanLetters(s, end+apostropheLen(s, end))
				tokens = append(tokens, t.token(s, split, clitic, Clitic))
				i = clitic
				continue
			}
			tokens = append(tokens, t.token(s, i, end, classify(s[i:end])))
			i = end

		case r != utf8.RuneError && unicode.IsPunct(r):
			end := i + size
			for end < len(s) {
				nr, ns := utf8.DecodeRuneInString(s[end:])
				if nr != r {
					break
				}
				end += ns
			}
			tokens = append(tokens, t.token(s, i, end, Punct))
			i = end

		default:
			tokens = append(tokens, t.token(s, i, i+size, Symbol))
			i += size
		}
	}

	return tokens
}

func (t *RuleTokenizer) token(s string, start, end int, kind Kind) Token {
	surface := s[start:end]
	norm := strings.ToLower(surface)
	tok := Token{
		Text:  surface,
		Norm:  norm,
		Start: start,
		End:   end,
		Kind:  kind,
		Alpha: kind == Word && isAlpha(surface),
	}
	if t.stop != nil {
		tok.Stop = t.stop.IsStopWord(norm)
	}
	return tok
}

// cliticAt reports whether the apostrophe at i starts a suffix of the word
// token emitted just before it ("company's")
func (t *RuleTokenizer) cliticAt(s string, i int, tokens []Token) bool {
	if len(tokens) == 0 || tokens[len(tokens)-1].End != i || tokens[len(tokens)-1].Kind != Word {
		return false
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	if i+size >= len(s) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(s[i+size:])
	return unicode.IsLetter(next)
}

// negationSplit returns the offset where "n't" starts when the word run
// [start,end) is immediately followed by "'t" and ends in "n", or -1
func negationSplit(s string, start, end int) int {
	if end-start < 2 || s[end-1] != 'n' && s[end-1] != 'N' {
		return -1
	}
	al := apostropheLen(s, end)
	if al == 0 || end+al >= len(s) {
		return -1
	}
	if c := s[end+al]; c != 't' && c != 'T' {
		return -1
	}
	if after := end + al + 1; after < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[after:]); isWordRune(r) {
			return -1
		}
	}
	return end - 1
}

// apostropheLen returns the byte length of an apostrophe at i, or 0
func apostropheLen(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(s[i:])
	if isApostrophe(r) {
		return size
	}
	return 0
}

// scanWord returns the end of the word run starting at i
// Separators between digits (1,000.50) stay inside the run
func scanWord(s string, i int) int {
	prevDigit := false
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if isWordRune(r) {
			prevDigit = unicode.IsDigit(r)
			i += size
			continue
		}
		if (r == '.' || r == ',') && prevDigit && i+1 < len(s) {
			if nr, _ := utf8.DecodeRuneInString(s[i+1:]); unicode.IsDigit(nr) {
				i += size
				continue
			}
		}
		break
	}
	return i
}

func scanLetters(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsLetter(r) {
			break
		}
		i += size
	}
	return i
}

func classify(word string) Kind {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return Word
		}
	}
	return Number
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r))
}

func isAlpha(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsMark(r) {
			return false
		}
	}
	return true
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}
