package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// Summarizer produces optional LLM briefs for finished reports.
// A brief is attached next to the analysis and never changes it.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer. An empty provider disables it.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateBrief asks the provider for a brief of report. Provider failures
// are reported as warnings on the brief, not as errors, so that analysis
// never fails because of the LLM.
func (s *Summarizer) GenerateBrief(ctx context.Context, report model.Report) (*model.LLMBrief, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	brief := &model.LLMBrief{
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictEvidence: s.config.StrictEvidence,
	}

	if !s.provider.IsAvailable(ctx) {
		brief.Warnings = append(brief.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return brief, nil
	}
	brief.Enabled = true

	urls := EvidenceURLs(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:       report,
		EvidenceURLs: urls,
		Model:        s.config.Model,
		MaxTokens:    s.config.MaxTokens,
	})
	if err != nil {
		brief.Warnings = append(brief.Warnings, fmt.Sprintf("LLM brief generation failed: %v", err))
		return brief, nil
	}

	brief.BriefMD = resp.Summary
	if resp.Model != "" {
		brief.Model = resp.Model
	}
	if resp.TokensUsed > 0 {
		brief.Warnings = append(brief.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if s.config.StrictEvidence {
		brief.Warnings = append(brief.Warnings, fmt.Sprintf("Verified %d citations against %d allowed URLs", len(resp.CitedURLs), len(urls)))
	}
	return brief, nil
}

// RenderSeparateMarkdown renders a brief as a standalone Markdown document
func RenderSeparateMarkdown(brief *model.LLMBrief) string {
	if brief == nil || !brief.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Brief\n\n")
	b.WriteString("> **GENERATED CONTENT.** This brief was written by a language model from the analysis report. ")
	b.WriteString("The summary, keywords and risk terms were determined independently and are not affected by it. ")
	b.WriteString("It is not legal advice.\n\n")

	fmt.Fprintf(&b, "- **Provider:** %s\n", brief.Provider)
	if brief.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", brief.Model)
	}
	fmt.Fprintf(&b, "- **Strict Evidence Mode:** %t\n\n", brief.StrictEvidence)

	b.WriteString("## Brief\n\n")
	if strings.TrimSpace(brief.BriefMD) == "" {
		b.WriteString("_No brief generated._\n")
	} else {
		b.WriteString(brief.BriefMD)
		b.WriteString("\n")
	}

	if len(brief.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range brief.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
