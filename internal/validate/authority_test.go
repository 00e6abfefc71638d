package validate

import (
	"testing"

	"github.com/ppiankov/legalens/internal/model"
)

func TestAuthorityClassifier_Defaults(t *testing.T) {
	classifier := NewAuthorityClassifier(nil)

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{"https://www.sec.gov/news/press-release/2026-101", model.TierPrimary, "SEC subdomain"},
		{"https://sec.gov/rss", model.TierPrimary, "SEC exact"},
		{"https://www.fca.org.uk/news", model.TierPrimary, "UK regulator"},
		{"https://eur-lex.europa.eu/eli/reg/2016/679", model.TierPrimary, "EU domain"},
		{"https://www.irs.gov/newsroom", model.TierPrimary, "unlisted .gov suffix"},
		{"https://www.reuters.com/legal/", model.TierSecondary, "legal press"},
		{"https://blog.example.com/post", model.TierTertiary, "unknown blog"},
		{"https://notsec.gov.example.com/x", model.TierTertiary, "lookalike host"},
		{"not a url", model.TierTertiary, "invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Classify(%s) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestAuthorityClassifier_DomainMap(t *testing.T) {
	classifier := NewAuthorityClassifier(&model.AuthorityConfig{
		PrimaryDomains:   []string{".Example.ORG"},
		SecondaryDomains: []string{"news.example.net"},
		DomainMap: map[string]string{
			"Feeds.Example.com": "secondary",
			"www.sec.gov":       "3",
		},
	})

	tests := []struct {
		url      string
		expected model.AuthorityTier
	}{
		{"https://feeds.example.com/rss", model.TierSecondary},
		{"https://www.sec.gov/rss", model.TierTertiary},
		{"https://sub.example.org/x", model.TierPrimary},
		{"https://news.example.net:8443/x", model.TierSecondary},
		{"https://example.net/x", model.TierTertiary},
	}

	for _, tt := range tests {
		if got := classifier.Classify(tt.url); got != tt.expected {
			t.Errorf("Classify(%s) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestAuthorityClassifier_Annotate(t *testing.T) {
	updates := []model.RegulatoryUpdate{
		{Title: "A", Link: "https://www.sec.gov/a"},
		{Title: "B", Link: "https://blog.example.com/b"},
		{Title: "C"},
	}
	updates = append(updates, model.FallbackUpdates()...)

	NewAuthorityClassifier(nil).Annotate(updates)

	want := []model.AuthorityTier{model.TierPrimary, model.TierTertiary, "", "", ""}
	for i, w := range want {
		if updates[i].Authority != w {
			t.Errorf("update %d authority = %q, want %q", i, updates[i].Authority, w)
		}
	}
}

func TestParseTier(t *testing.T) {
	tests := map[string]model.AuthorityTier{
		"primary":   model.TierPrimary,
		"PRIMARY":   model.TierPrimary,
		"1":         model.TierPrimary,
		"secondary": model.TierSecondary,
		"2":         model.TierSecondary,
		"tertiary":  model.TierTertiary,
		"bogus":     model.TierTertiary,
	}
	for in, want := range tests {
		if got := parseTier(in); got != want {
			t.Errorf("parseTier(%q) = %v, want %v", in, got, want)
		}
	}
}
