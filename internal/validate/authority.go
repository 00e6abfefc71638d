package validate

import (
	"net/url"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// AuthorityClassifier ranks regulatory update publishers by host
type AuthorityClassifier struct {
	domainMap map[string]model.AuthorityTier
	primary   []string
	secondary []string
}

// NewAuthorityClassifier creates a new authority classifier. A nil config
// uses the default regulator and press lists.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Regulatory.Authority
	}

	c := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(config.DomainMap)),
		primary:   normalizeDomains(config.PrimaryDomains),
		secondary: normalizeDomains(config.SecondaryDomains),
	}
	for host, tier := range config.DomainMap {
		c.domainMap[strings.ToLower(host)] = parseTier(tier)
	}
	return c
}

// Classify returns the tier of rawURL's host. Explicit host mappings win,
// then configured domains (including subdomains), then government and
// intergovernmental suffixes.
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierTertiary
	}
	host := strings.ToLower(parsed.Hostname())

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return model.TierSecondary
	}

	for _, suffix := range []string{".gov", ".mil", ".int", ".gov.uk", ".gc.ca", ".gov.au"} {
		if strings.HasSuffix(host, suffix) {
			return model.TierPrimary
		}
	}

	return model.TierTertiary
}

// Annotate sets the Authority of every update that has a link and leaves
// fallback updates untouched
func (a *AuthorityClassifier) Annotate(updates []model.RegulatoryUpdate) {
	for i := range updates {
		if updates[i].Fallback || updates[i].Link == "" {
			continue
		}
		updates[i].Authority = a.Classify(updates[i].Link)
	}
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// parseTier converts a tier string to AuthorityTier
func parseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
