// Package text splits raw document text into sentences and word tokens
//
// The package exposes three small capabilities as interfaces so that the
// analysis engine never depends on a concrete language resource:
//
//   - StopWords classifies a normalized word as a stop word
//   - Tokenizer turns a string into an ordered slice of Tokens
//   - Segmenter turns a document into an ordered slice of Sentences, each
//     carrying its own tokens
//
// The rule-based defaults (RuleTokenizer, RuleSegmenter, English) are pure
// functions of their input and are safe for concurrent use
package text

import "fmt"

// Kind classifies a token
type Kind int

const (
	Word   Kind = iota // run of letters, marks and digits
	Number             // digits with optional inner separators (1,000.50)
	Clitic             // apostrophe suffix split off a word ('s, n't)
	Punct              // punctuation run (".", "...", "--")
	Symbol             // anything else, including invalid UTF-8 bytes
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case Word:
		return "Word"
	case Number:
		return "Number"
	case Clitic:
		return "Clitic"
	case Punct:
		return "Punct"
	case Symbol:
		return "Symbol"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is a single unit produced by a Tokenizer
// The invariant src[t.Start:t.End] == t.Text holds for the string the token was
// produced from (the whole document for tokens held by a Sentence)
type Token struct {
	Text  string `json:"text"`
	Norm  string `json:"norm"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  Kind   `json:"kind"`
	Alpha bool   `json:"alpha"`
	Stop  bool   `json:"stop"`
}

// String returns a debug representation, e.g. Word("breach")[4:10]
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)[%d:%d]", t.Kind, t.Text, t.Start, t.End)
}

// Sentence is a contiguous span of the document with its tokens
type Sentence struct {
	Index  int     `json:"index"` // 0-based position in the document
	Text   string  `json:"text"`  // surface text, surrounding whitespace trimmed
	Start  int     `json:"start"` // byte offset of the raw span (inclusive)
	End    int     `json:"end"`   // byte offset of the raw span (exclusive)
	Tokens []Token `json:"tokens,omitempty"`
}

// StopWords reports whether a normalized word is a stop word
type StopWords interface {
	IsStopWord(word string) bool
}

// Tokenizer splits a string into tokens with offsets relative to that string
type Tokenizer interface {
	Tokenize(s string) []Token
}

// Segmenter splits a document into sentences in document order
// Raw spans of consecutive sentences must not overlap or leave gaps other than
// whitespace
type Segmenter interface {
	Segment(s string) []Sentence
}

// Tokens flattens the tokens of all sentences in document order
func Tokens(sentences []Sentence) []Token {
	n := 0
	for _, s := range sentences {
		n += len(s.Tokens)
	}
	out := make([]Token, 0, n)
	for _, s := range sentences {
		out = append(out, s.Tokens...)
	}
	return out
}
