// Package score turns risk matches into a transparent risk profile.
// Every signal carries the inputs and the formula that produced its points.
package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/legalens/internal/model"
)

// ShortDocumentTokens is the token count below which statistics are
// flagged as unstable
const ShortDocumentTokens = 50

// Risk levels
const (
	LevelNone   = "none"
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Scorer calculates the risk profile of an analysis
type Scorer struct {
	lexiconSize int
}

// NewScorer creates a scorer for a lexicon of the given size
func NewScorer(lexiconSize int) *Scorer {
	return &Scorer{lexiconSize: lexiconSize}
}

// Calculate scores an analysis from 0 to 100 and explains the result
func (s *Scorer) Calculate(result model.AnalysisResult) model.RiskProfile {
	stats := result.Stats
	if stats.Sentences == 0 {
		return model.RiskProfile{
			Level: LevelNone,
			Signals: []model.Signal{{
				Type:        model.SignalEmptyDocument,
				Severity:    model.SeverityCritical,
				Description: "Document contains no text",
				Data:        map[string]interface{}{"characters": stats.Characters},
			}},
		}
	}

	occurrences := 0
	mentioning := map[int]bool{}
	for _, m := range result.RiskMatches {
		occurrences += m.Count
		for _, idx := range m.Sentences {
			mentioning[idx] = true
		}
	}

	var signals []model.Signal

	// 1. Coverage (0-40 points)
	coveragePoints, coverageSignal := s.coverage(len(result.RiskMatches))
	signals = append(signals, coverageSignal)

	// 2. Density (0-40 points)
	density := 0.0
	if stats.Tokens > 0 {
		density = float64(occurrences) / float64(stats.Tokens) * 1000
	}
	densityPoints, densitySignal := s.density(occurrences, stats.Tokens, density)
	signals = append(signals, densitySignal)

	// 3. Spread (0-20 points)
	spreadPoints, spreadSignal := s.spread(len(mentioning), stats.Sentences)
	signals = append(signals, spreadSignal)

	// Per-term detail, in first-occurrence order
	for _, m := range result.RiskMatches {
		signals = append(signals, termSignal(m))
	}

	if stats.Tokens < ShortDocumentTokens {
		signals = append(signals, model.Signal{
			Type:        model.SignalShortDocument,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Only %d tokens; density and spread are unstable", stats.Tokens),
			Data: map[string]interface{}{
				"tokens":    stats.Tokens,
				"threshold": ShortDocumentTokens,
			},
		})
	}

	total := coveragePoints + densityPoints + spreadPoints
	if total > 100 {
		total = 100
	}

	return model.RiskProfile{
		Level:   Level(total, occurrences),
		Score:   total,
		Density: math.Round(density*100) / 100,
		Signals: signals,
	}
}

// Level maps a score to a risk level. A document without any risk term
// is "none" regardless of score.
func Level(score, occurrences int) string {
	switch {
	case occurrences == 0:
		return LevelNone
	case score >= 60:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	default:
		return LevelLow
	}
}

// coverage awards 10 points per distinct lexicon term, capped at 40
func (s *Scorer) coverage(distinct int) (int, model.Signal) {
	points := min(distinct*10, 40)

	severity := model.SeverityInfo
	if distinct >= 4 {
		severity = model.SeverityCritical
	} else if distinct >= 2 {
		severity = model.SeverityWarning
	}

	return points, model.Signal{
		Type:        model.SignalRiskCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d risk terms present", distinct, s.lexiconSize),
		Data: map[string]interface{}{
			"distinct_terms": distinct,
			"lexicon_size":   s.lexiconSize,
			"score":          points,
			"formula":        "min(distinct_terms * 10, 40)",
		},
	}
}

// density awards 4 points per risk occurrence per 1,000 tokens, capped at 40
func (s *Scorer) density(occurrences, tokens int, density float64) (int, model.Signal) {
	points := int(math.Min(density*4, 40))

	severity := model.SeverityInfo
	if density >= 10 {
		severity = model.SeverityCritical
	} else if density >= 5 {
		severity = model.SeverityWarning
	}

	return points, model.Signal{
		Type:        model.SignalRiskDensity,
		Severity:    severity,
		Description: fmt.Sprintf("%.2f risk terms per 1,000 tokens", density),
		Data: map[string]interface{}{
			"occurrences": occurrences,
			"tokens":      tokens,
			"density":     density,
			"score":       points,
			"formula":     "min(occurrences / tokens * 1000 * 4, 40)",
		},
	}
}

// spread awards up to 20 points for the share of sentences naming a risk
func (s *Scorer) spread(mentioning, sentences int) (int, model.Signal) {
	ratio := float64(mentioning) / float64(sentences)
	points := int(ratio * 20)

	severity := model.SeverityInfo
	if ratio >= 0.5 {
		severity = model.SeverityCritical
	} else if ratio >= 0.25 {
		severity = model.SeverityWarning
	}

	return points, model.Signal{
		Type:        model.SignalRiskSpread,
		Severity:    severity,
		Description: fmt.Sprintf("%d/%d sentences (%.0f%%) mention a risk term", mentioning, sentences, ratio*100),
		Data: map[string]interface{}{
			"sentences_with_risk": mentioning,
			"sentences":           sentences,
			"ratio":               ratio,
			"score":               points,
			"formula":             "(sentences_with_risk / sentences) * 20",
		},
	}
}

func termSignal(m model.RiskMatch) model.Signal {
	severity := model.SeverityInfo
	if m.Count > 1 {
		severity = model.SeverityWarning
	}
	return model.Signal{
		Type:        model.SignalRiskTerm,
		Severity:    severity,
		Description: fmt.Sprintf("%q appears %d time(s) in %d sentence(s)", m.Term, m.Count, len(m.Sentences)),
		Data: map[string]interface{}{
			"term":      m.Term,
			"count":     m.Count,
			"sentences": m.Sentences,
		},
	}
}
