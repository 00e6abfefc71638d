package model

import (
	"path/filepath"
	"strings"
	"time"
)

// ReportTitle is the heading used by every rendered report and the e-mail subject
const ReportTitle = "Legal Document Analysis Results"

// Report represents the complete legalens analysis report
type Report struct {
	ID        string     `json:"id"`                   // Random report identifier
	Subject   string     `json:"subject"`              // Human-readable document name
	Source    string     `json:"source"`               // File path or URL that was analyzed
	Format    string     `json:"format,omitempty"`     // Extractor that produced the text (pdf, html, text)
	CreatedAt time.Time  `json:"created_at"`           // When the analysis ran
	FetchMeta *FetchMeta `json:"fetch_meta,omitempty"` // HTTP metadata for remote documents

	Features []string       `json:"features"`     // Enabled report sections
	Analysis AnalysisResult `json:"analysis"`     // Engine output
	Profile  RiskProfile    `json:"risk_profile"` // Risk scoring breakdown

	Updates []RegulatoryUpdate `json:"regulatory_updates,omitempty"`

	Principles Principles `json:"principles"` // Core principles applied

	LLM *LLMBrief `json:"llm,omitempty"` // Optional LLM brief (separate, never affects analysis)
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// RiskProfile represents the transparent risk breakdown
type RiskProfile struct {
	Level   string   `json:"level"`   // "none", "low", "medium", "high"
	Score   int      `json:"score"`   // 0-100
	Density float64  `json:"density"` // Risk term occurrences per 1,000 tokens
	Signals []Signal `json:"signals"` // Diagnostic signals with transparent data
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formulas and inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalRiskCoverage  SignalType = "risk_coverage"  // Distinct lexicon terms found
	SignalRiskDensity   SignalType = "risk_density"   // Occurrences per 1,000 tokens
	SignalRiskSpread    SignalType = "risk_spread"    // Share of sentences mentioning a risk
	SignalRiskTerm      SignalType = "risk_term"      // Per-term detail
	SignalShortDocument SignalType = "short_document" // Too little text for stable statistics
	SignalEmptyDocument SignalType = "empty_document" // No text at all
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Principles documents which core principles were applied
type Principles struct {
	Extractive    bool `json:"extractive"`    // Summary only reuses source sentences
	Deterministic bool `json:"deterministic"` // Same input, same output
	NonAdvisory   bool `json:"non_advisory"`  // Flags terminology, gives no legal advice
}

// DefaultPrinciples returns the standard legalens principles
func DefaultPrinciples() Principles {
	return Principles{
		Extractive:    true,
		Deterministic: true,
		NonAdvisory:   true,
	}
}

// LLMBrief contains an optional LLM-generated brief
// It never alters the extractive summary and is rendered separately
type LLMBrief struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"` // openai, ollama
	Model          string   `json:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence"` // Whether citation enforcement was enabled
	BriefMD        string   `json:"brief_md,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// SubjectFromSource derives a readable subject from a file path or URL
func SubjectFromSource(source string) string {
	s := strings.TrimRight(source, "/")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.IndexAny(s, "?#"); j >= 0 {
			s = s[:j]
		}
		if !strings.Contains(s, "/") {
			return s
		}
	}
	base := filepath.Base(s)
	if base == "." || base == "/" || base == "" {
		return source
	}
	if ext := filepath.Ext(base); ext != "" && len(ext) < len(base) {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return base
}
