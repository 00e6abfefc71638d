// Package analysis implements the lexical-statistics engine: frequency tables,
// extractive summaries, keywords, risk-term matching and key clauses
// Every function is a pure function of the document and the engine's immutable
// configuration
package analysis

import (
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/text"
)

// Document is a segmented, read-only document
type Document struct {
	Text      string
	Sentences []text.Sentence
}

// Tokens returns the tokens of all sentences in document order
func (d *Document) Tokens() []text.Token {
	return text.Tokens(d.Sentences)
}

// Engine holds the immutable configuration used for every analysis
// It is safe for concurrent use
type Engine struct {
	segmenter    text.Segmenter
	lexicon      *Lexicon
	numSentences int
	topN         int
	clauseLimit  int
}

// Option configures an Engine
type Option func(*engineOptions)

type engineOptions struct {
	segmenter    text.Segmenter
	stopWords    text.StopWords
	lexicon      *Lexicon
	numSentences int
	topN         int
	clauseLimit  int
}

// WithSegmenter replaces the sentence segmenter
// It takes precedence over WithStopWords, since the segmenter owns tokenization
func WithSegmenter(s text.Segmenter) Option {
	return func(o *engineOptions) { o.segmenter = s }
}

// WithStopWords sets the stop-word predicate used by the default tokenizer
func WithStopWords(sw text.StopWords) Option {
	return func(o *engineOptions) { o.stopWords = sw }
}

// WithLexicon sets the risk lexicon
func WithLexicon(l *Lexicon) Option {
	return func(o *engineOptions) { o.lexicon = l }
}

// WithNumSentences sets the summary length
// Values below 1 become 1
func WithNumSentences(n int) Option {
	return func(o *engineOptions) { o.numSentences = clamp(n) }
}

// WithTopN sets the keyword count
// Values below 1 become 1
func WithTopN(n int) Option {
	return func(o *engineOptions) { o.topN = clamp(n) }
}

// WithClauseLimit sets the key clause count
// Values below 1 become 1
func WithClauseLimit(n int) Option {
	return func(o *engineOptions) { o.clauseLimit = clamp(n) }
}

// New creates an engine
// Without options it uses the English stop words, the default lexicon, 5
// summary sentences, 10 keywords and 10 clauses
func New(opts ...Option) *Engine {
	o := engineOptions{
		stopWords:    text.English(),
		numSentences: DefaultNumSentences,
		topN:         DefaultTopN,
		clauseLimit:  DefaultClauseLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.segmenter == nil {
		o.segmenter = text.NewSegmenter(text.NewTokenizer(o.stopWords))
	}
	if o.lexicon == nil {
		o.lexicon = DefaultLexicon()
	}
	return &Engine{
		segmenter:    o.segmenter,
		lexicon:      o.lexicon,
		numSentences: o.numSentences,
		topN:         o.topN,
		clauseLimit:  o.clauseLimit,
	}
}

// Lexicon returns the engine's risk lexicon
func (e *Engine) Lexicon() *Lexicon {
	return e.lexicon
}

// Parse segments raw text into a Document
func (e *Engine) Parse(raw string) *Document {
	return &Document{Text: raw, Sentences: e.segmenter.Segment(raw)}
}

// Summarize returns the extractive summary of raw
func (e *Engine) Summarize(raw string) string {
	return Summarize(e.Parse(raw), e.numSentences)
}

// Keywords returns the top keywords of raw
func (e *Engine) Keywords(raw string) []string {
	return Keywords(e.Parse(raw), e.topN)
}

// Risks returns the distinct risk terms found in raw, sorted lexically
func (e *Engine) Risks(raw string) []string {
	return Risks(e.Parse(raw), e.lexicon)
}

// Analyze runs every analysis over raw
// The outputs are computed concurrently from the same immutable document and
// frequency table
// Empty input yields an empty summary and empty slices
func (e *Engine) Analyze(raw string) *model.AnalysisResult {
	doc := e.Parse(raw)
	tokens := doc.Tokens()
	table := BuildFrequencyTable(tokens)

	result := &model.AnalysisResult{
		Keywords: []string{},
		Risks:    []string{},
		Stats: model.DocumentStats{
			Characters:    utf8.RuneCountInString(raw),
			Sentences:     len(doc.Sentences),
			Tokens:        len(tokens),
			ContentTokens: table.Total(),
			DistinctWords: table.Len(),
		},
	}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		result.Summary = summarize(doc, table, e.numSentences)
	}()
	go func() {
		defer wg.Done()
		result.Keywords = TopKeywords(table, e.topN)
	}()
	go func() {
		defer wg.Done()
		matches := MatchRisks(doc, e.lexicon)
		risks := make([]string, len(matches))
		for i, m := range matches {
			risks[i] = m.Term
		}
		slices.Sort(risks)
		result.RiskMatches = matches
		result.Risks = risks
	}()
	go func() {
		defer wg.Done()
		result.KeyClauses = KeyClauses(doc, e.clauseLimit)
	}()
	go func() {
		defer wg.Done()
		result.Frequencies = table.Ranked()
	}()
	wg.Wait()

	return result
}
