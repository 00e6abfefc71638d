package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Link is an outbound anchor found in an HTML page
type Link struct {
	URL        string `json:"url"`
	Host       string `json:"host,omitempty"`
	IsSameHost bool   `json:"is_same_host"`
	Text       string `json:"text,omitempty"`
}

// Links extracts absolute http(s) links from HTML content. Relative links
// are resolved against sourceURL; anchors, javascript: and mailto: links
// are skipped and duplicates removed.
func Links(htmlContent string, sourceURL string) ([]Link, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	anchors := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A && attr(n, "href") != ""
	})

	var links []Link
	for _, a := range anchors {
		resolved := resolveURL(baseURL, strings.TrimSpace(attr(a, "href")))
		if resolved == "" {
			continue
		}
		host := ""
		if parsed, err := url.Parse(resolved); err == nil {
			host = parsed.Host
		}
		links = append(links, Link{
			URL:        resolved,
			Host:       host,
			IsSameHost: host == baseURL.Host,
			Text:       VisibleText(a),
		})
	}

	return dedupeLinks(links), nil
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	// Skip anchors
	if strings.HasPrefix(href, "#") {
		return ""
	}

	// Skip javascript: and mailto: links
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

// dedupeLinks removes duplicate links, keeping the first
func dedupeLinks(links []Link) []Link {
	seen := make(map[string]bool)
	var unique []Link

	for _, l := range links {
		if !seen[l.URL] {
			seen[l.URL] = true
			unique = append(unique, l)
		}
	}

	return unique
}
