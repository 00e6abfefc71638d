package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a brief of the report with strict evidence mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the finished legalens report
	Report model.Report

	// EvidenceURLs is the allowlist of URLs the LLM can cite.
	// It holds the links of the regulatory updates attached to the report.
	EvidenceURLs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string // URLs found in Summary, for verification
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI. Ollama ignores it.
	APIKey string

	// BaseURL for OpenAI-compatible endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence rejects briefs that cite URLs outside the allowlist
	StrictEvidence bool

	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      800,
	}
}

// EvidenceURLs returns the citable links of a report
func EvidenceURLs(report model.Report) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range report.Updates {
		if u.Link == "" || seen[u.Link] {
			continue
		}
		seen[u.Link] = true
		urls = append(urls, u.Link)
	}
	return urls
}

// BuildPrompt constructs the default prompt for a report brief
func BuildPrompt(report model.Report, evidenceURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are writing a short plain-language brief of a legalens report. legalens flags risk terminology in legal documents. It NEVER gives legal advice and never judges whether a document is lawful.

RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. DO NOT infer, speculate, or cite external sources beyond this list.
3. Do not add facts that are not in the report below.
4. Describe which risk terms appear and where, not whether the document is safe.
5. Never recommend an action. Suggest consulting counsel if the reader needs advice.

Report:
- Document: %s
- Sentences: %d
- Tokens: %d
- Risk Level: %s (%d/100)
- Risk Terms: %s
- Keywords: %s

Extractive Summary:
%s

Key Signals:
`, joinURLs(evidenceURLs),
		report.Subject,
		report.Analysis.Stats.Sentences,
		report.Analysis.Stats.Tokens,
		orNone(report.Profile.Level), report.Profile.Score,
		joinTerms(report.Analysis.Risks),
		joinTerms(report.Analysis.Keywords),
		orNone(report.Analysis.Summary))

	// Add top 3 signals
	for i, signal := range report.Profile.Signals {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", signal.Type, signal.Description)
	}

	if len(report.Updates) > 0 {
		b.WriteString("\nRegulatory Updates:\n")
		for _, u := range report.Updates {
			fmt.Fprintf(&b, "- %s\n", u.Title)
		}
	}

	b.WriteString("\nProvide a 3-4 sentence brief describing the flagged terminology, not legal conclusions.")

	return b.String()
}

// Helper functions

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No citable URLs available)"
	}
	var b strings.Builder
	for i, url := range urls {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", url)
	}
	return b.String()
}

func joinTerms(terms []string) string {
	if len(terms) == 0 {
		return "(none)"
	}
	return strings.Join(terms, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
