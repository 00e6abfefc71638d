package model

import "time"

// RegulatoryUpdate is a headline fetched from a regulator's news source
type RegulatoryUpdate struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`        // Plain text, sanitized
	Markdown    string        `json:"markdown,omitempty"` // Description converted from HTML
	Link        string        `json:"link,omitempty"`
	Source      string        `json:"source,omitempty"` // Host the update came from
	Published   *time.Time    `json:"published,omitempty"`
	Authority   AuthorityTier `json:"authority,omitempty"` // How authoritative the source host is
	Fallback    bool          `json:"fallback,omitempty"`  // Predefined update used when fetching failed
}

// AuthorityTier ranks the publisher of a regulatory update
type AuthorityTier string

const (
	TierPrimary   AuthorityTier = "primary"   // Regulators, legislatures, courts
	TierSecondary AuthorityTier = "secondary" // Established legal and financial press
	TierTertiary  AuthorityTier = "tertiary"  // Everything else
)

// FallbackUpdates returns the predefined updates shown when no source
// could be fetched
func FallbackUpdates() []RegulatoryUpdate {
	return []RegulatoryUpdate{
		{
			Title:       "New Compliance Guidelines",
			Description: "SEC released new guidelines for regulatory compliance.",
			Fallback:    true,
		},
		{
			Title:       "Update on Financial Risks",
			Description: "New policies to mitigate risks in the financial sector.",
			Fallback:    true,
		},
	}
}
