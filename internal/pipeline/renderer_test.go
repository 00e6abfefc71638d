package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/legalens/internal/model"
)

func sampleReport() *model.Report {
	published := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &model.Report{
		ID:        "7d1e6a52-0c3f-4f55-9d8c-2a8f3f9e1b10",
		Subject:   "Supply Agreement",
		Source:    "contracts/supply_agreement.pdf",
		Format:    "pdf",
		CreatedAt: time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC),
		Features:  []string{"summary", "clauses", "keywords", "risks", "updates"},
		Analysis: model.AnalysisResult{
			Summary:    "Any breach results in a penalty. Each party bears its own risk.",
			Keywords:   []string{"supplier", "breach", "penalty"},
			Risks:      []string{"breach", "penalty", "risk"},
			KeyClauses: []string{"Any breach of this agreement by the Supplier results in a penalty of ten percent."},
			RiskMatches: []model.RiskMatch{
				{Term: "breach", Count: 2, Sentences: []int{1, 2}},
				{Term: "penalty", Count: 1, Sentences: []int{1}},
				{Term: "risk", Count: 1, Sentences: []int{3}},
			},
			Frequencies: []model.WordCount{
				{Word: "supplier", Count: 4},
				{Word: "breach", Count: 2},
				{Word: "penalty", Count: 1},
			},
			Stats: model.DocumentStats{Sentences: 5, Tokens: 60, DistinctWords: 30},
		},
		Profile: model.RiskProfile{
			Level:   "medium",
			Score:   52,
			Density: 66.67,
			Signals: []model.Signal{
				{Type: model.SignalRiskCoverage, Severity: model.SeverityInfo, Description: "3 of 10 lexicon terms found"},
				{Type: model.SignalRiskTerm, Severity: model.SeverityInfo, Description: "breach appears 2 times"},
			},
		},
		Updates: []model.RegulatoryUpdate{
			{
				Title:     "SEC Adopts Amendments",
				Markdown:  "The Commission **adopted** amendments.",
				Link:      "https://www.sec.gov/news/press-release/2026-10",
				Source:    "www.sec.gov",
				Published: &published,
				Authority: model.TierPrimary,
			},
			model.FallbackUpdates()[0],
		},
		Principles: model.DefaultPrinciples(),
	}
}

func TestWriteMarkdown_SectionOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(true).WriteMarkdown(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	md := buf.String()

	order := []string{
		"# Legal Document Analysis Results",
		"## Summary",
		"## Key Clauses",
		"## Keywords",
		"## Detected Risks",
		"## Regulatory Updates",
		"not legal advice",
	}
	last := -1
	for _, section := range order {
		i := strings.Index(md, section)
		if i < 0 {
			t.Fatalf("Missing %q in:\n%s", section, md)
		}
		if i < last {
			t.Errorf("%q is out of order", section)
		}
		last = i
	}

	for _, want := range []string{
		"- **Document:** Supply Agreement",
		"- **Format:** pdf",
		"- **Report ID:** `7d1e6a52-0c3f-4f55-9d8c-2a8f3f9e1b10`",
		"- Any breach of this agreement",
		"**Terms:** breach, penalty, risk",
		"**Risk level:** medium (52/100), 66.67 terms per 1,000 tokens",
		"| breach | 2 | 2, 3 |",
		"- **risk_coverage** (info): 3 of 10 lexicon terms found",
		"- **[SEC Adopts Amendments](https://www.sec.gov/news/press-release/2026-10)** (www.sec.gov, 2026-03-02, primary)",
		"  The Commission **adopted** amendments.",
		"- **New Compliance Guidelines** (predefined)",
		"  SEC released new guidelines",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}
	if strings.Contains(md, "breach appears 2 times") {
		t.Error("Per-term signals belong in the table, not the signal list")
	}
}

func TestWriteMarkdown_FeaturesAndFooter(t *testing.T) {
	report := sampleReport()
	report.Features = []string{"risks"}

	var buf bytes.Buffer
	if err := NewRenderer(false).WriteMarkdown(&buf, report); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	md := buf.String()

	if !strings.Contains(md, "## Detected Risks") {
		t.Error("Expected risks section")
	}
	for _, absent := range []string{"## Summary", "## Key Clauses", "## Keywords", "## Regulatory Updates", "Generated by legalens"} {
		if strings.Contains(md, absent) {
			t.Errorf("Did not expect %q", absent)
		}
	}
}

func TestWriteMarkdown_Empty(t *testing.T) {
	report := &model.Report{Subject: "Empty", Analysis: model.AnalysisResult{Keywords: []string{}, Risks: []string{}}}

	var buf bytes.Buffer
	if err := NewRenderer(false).WriteMarkdown(&buf, report); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	for _, want := range []string{"_No summary available._", "_No key clauses identified._", "_No keywords found._", "_No risk terms detected._", "_No regulatory updates available._"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected placeholder %q", want)
		}
	}
}

func TestKeywordChart(t *testing.T) {
	chart := keywordChart(sampleReport().Analysis)
	lines := strings.Split(strings.TrimRight(chart, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 bars, got %d:\n%s", len(lines), chart)
	}

	tests := []struct {
		line  string
		word  string
		bars  int
		count string
	}{
		{lines[0], "supplier", barWidth, "4"},
		{lines[1], "breach  ", barWidth / 2, "2"},
		{lines[2], "penalty ", barWidth / 4, "1"},
	}
	for _, tt := range tests {
		if !strings.HasPrefix(tt.line, tt.word+" ") {
			t.Errorf("Expected %q to start with padded %q", tt.line, tt.word)
		}
		if got := strings.Count(tt.line, "█"); got != tt.bars {
			t.Errorf("%s: expected %d bars, got %d", tt.word, tt.bars, got)
		}
		if !strings.HasSuffix(tt.line, " "+tt.count) {
			t.Errorf("Expected %q to end with count %s", tt.line, tt.count)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(false).WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	for _, key := range []string{"id", "subject", "analysis", "risk_profile", "regulatory_updates", "principles"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected key %q", key)
		}
	}
	if _, ok := decoded["llm"]; ok {
		t.Error("Expected llm to be omitted when absent")
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(false).RenderSummary(&buf, sampleReport())
	out := buf.String()

	for _, want := range []string{"Supply Agreement", "Risks:     breach, penalty, risk", "Level:     medium (52/100)", "Updates:   2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}
}
