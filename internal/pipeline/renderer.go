package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// barWidth is the length of the longest bar in the keyword chart
const barWidth = 30

// Renderer writes reports as JSON, Markdown, PDF and a console summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON writes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteMarkdown writes the report as Markdown. Sections appear in the
// order Summary, Key Clauses, Keywords, Detected Risks, Regulatory Updates
// and only for enabled features.
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	features, err := model.ParseFeatures(report.Features)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", model.ReportTitle)
	fmt.Fprintf(&b, "- **Document:** %s\n", report.Subject)
	fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	if report.Format != "" {
		fmt.Fprintf(&b, "- **Format:** %s\n", report.Format)
	}
	if !report.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Analyzed:** %s\n", report.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if report.ID != "" {
		fmt.Fprintf(&b, "- **Report ID:** `%s`\n", report.ID)
	}
	st := report.Analysis.Stats
	fmt.Fprintf(&b, "- **Size:** %d sentences, %d tokens, %d distinct words\n", st.Sentences, st.Tokens, st.DistinctWords)

	a := report.Analysis
	if features.Has(model.FeatureSummary) {
		b.WriteString("\n## Summary\n\n")
		b.WriteString(orPlaceholder(a.Summary, "_No summary available._"))
		b.WriteString("\n")
	}

	if features.Has(model.FeatureClauses) {
		b.WriteString("\n## Key Clauses\n\n")
		if len(a.KeyClauses) == 0 {
			b.WriteString("_No key clauses identified._\n")
		}
		for _, clause := range a.KeyClauses {
			fmt.Fprintf(&b, "- %s\n", clause)
		}
	}

	if features.Has(model.FeatureKeywords) {
		b.WriteString("\n## Keywords\n\n")
		if len(a.Keywords) == 0 {
			b.WriteString("_No keywords found._\n")
		} else {
			b.WriteString("```text\n")
			b.WriteString(keywordChart(a))
			b.WriteString("```\n")
		}
	}

	if features.Has(model.FeatureRisks) {
		b.WriteString("\n## Detected Risks\n\n")
		writeRisks(&b, report)
	}

	if features.Has(model.FeatureUpdates) {
		b.WriteString("\n## Regulatory Updates\n\n")
		writeUpdates(&b, report.Updates)
	}

	if report.LLM != nil && report.LLM.Enabled {
		b.WriteString("\n---\n\n_An LLM brief is available in a separate file. It does not affect this report._\n")
	}

	if r.includeFooter {
		b.WriteString("\n---\n\n_Generated by legalens. Flags risk terminology only; this is not legal advice._\n")
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// keywordChart draws a horizontal bar per keyword scaled to its frequency
func keywordChart(a model.AnalysisResult) string {
	counts := make(map[string]int, len(a.Frequencies))
	for _, wc := range a.Frequencies {
		counts[wc.Word] = wc.Count
	}

	maxCount, width := 0, 0
	for _, k := range a.Keywords {
		maxCount = max(maxCount, counts[k])
		width = max(width, len(k))
	}

	var b strings.Builder
	for _, k := range a.Keywords {
		n := counts[k]
		bar := 0
		if maxCount > 0 {
			bar = max(1, n*barWidth/maxCount)
		}
		fmt.Fprintf(&b, "%-*s %s %d\n", width, k, strings.Repeat("█", bar), n)
	}
	return b.String()
}

func writeRisks(b *strings.Builder, report *model.Report) {
	a := report.Analysis
	if len(a.Risks) == 0 {
		b.WriteString("_No risk terms detected._\n")
	} else {
		fmt.Fprintf(b, "**Terms:** %s\n\n", strings.Join(a.Risks, ", "))
	}

	p := report.Profile
	if p.Level == "" {
		return
	}
	fmt.Fprintf(b, "**Risk level:** %s (%d/100), %.2f terms per 1,000 tokens\n\n", p.Level, p.Score, p.Density)

	if len(a.RiskMatches) > 0 {
		b.WriteString("| Term | Occurrences | Sentences |\n|---|---|---|\n")
		for _, m := range a.RiskMatches {
			idx := make([]string, len(m.Sentences))
			for i, s := range m.Sentences {
				idx[i] = fmt.Sprint(s + 1)
			}
			fmt.Fprintf(b, "| %s | %d | %s |\n", m.Term, m.Count, strings.Join(idx, ", "))
		}
		b.WriteString("\n")
	}

	for _, s := range p.Signals {
		if s.Type == model.SignalRiskTerm {
			continue
		}
		fmt.Fprintf(b, "- **%s** (%s): %s\n", s.Type, s.Severity, s.Description)
	}
}

func writeUpdates(b *strings.Builder, updates []model.RegulatoryUpdate) {
	if len(updates) == 0 {
		b.WriteString("_No regulatory updates available._\n")
		return
	}
	for _, u := range updates {
		title := u.Title
		if u.Link != "" {
			title = fmt.Sprintf("[%s](%s)", u.Title, u.Link)
		}
		var meta []string
		if u.Source != "" {
			meta = append(meta, u.Source)
		}
		if u.Published != nil {
			meta = append(meta, u.Published.Format("2006-01-02"))
		}
		if u.Authority != "" {
			meta = append(meta, string(u.Authority))
		}
		if u.Fallback {
			meta = append(meta, "predefined")
		}
		fmt.Fprintf(b, "- **%s**", title)
		if len(meta) > 0 {
			fmt.Fprintf(b, " (%s)", strings.Join(meta, ", "))
		}
		b.WriteString("\n")

		body := u.Markdown
		if body == "" {
			body = u.Description
		}
		if body = strings.TrimSpace(body); body != "" {
			b.WriteString("  ")
			b.WriteString(strings.ReplaceAll(body, "\n", "\n  "))
			b.WriteString("\n")
		}
	}
}

// RenderJSON writes the report as JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, report) })
}

// RenderPDF writes the report as a PDF to path
func (r *Renderer) RenderPDF(report *model.Report, path string) error {
	data, err := RenderPDF(report)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// RenderLLMMarkdown writes the LLM brief to its own file
func (r *Renderer) RenderLLMMarkdown(markdown string, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, markdown)
		return err
	})
}

// RenderSummary prints a short console summary of the report
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	a := report.Analysis
	fmt.Fprintf(w, "\n%s: %s\n", model.ReportTitle, report.Subject)
	fmt.Fprintf(w, "  Sentences: %d  Tokens: %d\n", a.Stats.Sentences, a.Stats.Tokens)
	if len(a.Keywords) > 0 {
		fmt.Fprintf(w, "  Keywords:  %s\n", strings.Join(a.Keywords, ", "))
	}
	if len(a.Risks) > 0 {
		fmt.Fprintf(w, "  Risks:     %s\n", strings.Join(a.Risks, ", "))
	} else {
		fmt.Fprintf(w, "  Risks:     none detected\n")
	}
	if report.Profile.Level != "" {
		fmt.Fprintf(w, "  Level:     %s (%d/100)\n", report.Profile.Level, report.Profile.Score)
	}
	if n := len(report.Updates); n > 0 {
		fmt.Fprintf(w, "  Updates:   %d\n", n)
	}
	fmt.Fprintln(w)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
