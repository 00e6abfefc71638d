package model

import (
	"fmt"
	"strings"
)

// AnalysisResult is the output of one engine run over a document
type AnalysisResult struct {
	Summary     string        `json:"summary"`               // Selected sentences joined by a single space
	Keywords    []string      `json:"keywords"`              // Top-N words, most frequent first
	Risks       []string      `json:"risks"`                 // Distinct matched risk terms, sorted lexically
	KeyClauses  []string      `json:"key_clauses,omitempty"` // Long sentences in document order
	RiskMatches []RiskMatch   `json:"risk_matches,omitempty"`
	Frequencies []WordCount   `json:"frequencies,omitempty"` // Full ranked frequency table
	Stats       DocumentStats `json:"stats"`
}

// RiskMatch records where a risk term occurs
type RiskMatch struct {
	Term      string `json:"term"`
	Count     int    `json:"count"`
	Sentences []int  `json:"sentences"` // Distinct sentence indexes, ascending
}

// WordCount is one entry of a ranked frequency table
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// DocumentStats holds basic counts for a document
type DocumentStats struct {
	Characters    int `json:"characters"`
	Sentences     int `json:"sentences"`
	Tokens        int `json:"tokens"`
	ContentTokens int `json:"content_tokens"` // Alphabetic, non-stop tokens
	DistinctWords int `json:"distinct_words"`
}

// Feature names a report section that can be switched on or off
type Feature string

const (
	FeatureSummary  Feature = "summary"
	FeatureClauses  Feature = "clauses"
	FeatureKeywords Feature = "keywords"
	FeatureRisks    Feature = "risks"
	FeatureUpdates  Feature = "updates"
)

// AllFeatures lists every feature in report order
func AllFeatures() []Feature {
	return []Feature{FeatureSummary, FeatureClauses, FeatureKeywords, FeatureRisks, FeatureUpdates}
}

// FeatureSet is the set of enabled report sections
type FeatureSet map[Feature]bool

// ParseFeatures parses names like "summary,risks". An empty list enables everything.
func ParseFeatures(names []string) (FeatureSet, error) {
	set := FeatureSet{}
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if name == "all" {
				for _, f := range AllFeatures() {
					set[f] = true
				}
				continue
			}
			f := Feature(name)
			if !f.valid() {
				return nil, fmt.Errorf("unknown feature %q (supported: summary, clauses, keywords, risks, updates)", name)
			}
			set[f] = true
		}
	}
	if len(set) == 0 {
		for _, f := range AllFeatures() {
			set[f] = true
		}
	}
	return set, nil
}

// Has reports whether f is enabled. A nil set enables everything.
func (s FeatureSet) Has(f Feature) bool {
	if s == nil {
		return true
	}
	return s[f]
}

// Names returns the enabled features in report order
func (s FeatureSet) Names() []string {
	var names []string
	for _, f := range AllFeatures() {
		if s.Has(f) {
			names = append(names, string(f))
		}
	}
	return names
}

func (f Feature) valid() bool {
	for _, known := range AllFeatures() {
		if f == known {
			return true
		}
	}
	return false
}
