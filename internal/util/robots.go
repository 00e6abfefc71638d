package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// robotsTTL bounds how long a host's robots.txt is trusted
const robotsTTL = 24 * time.Hour

// RobotsChecker checks robots.txt compliance before documents and feeds
// are fetched. Parsed files are cached per scheme and host.
type RobotsChecker struct {
	cache      *gocache.Cache
	httpClient *http.Client
	userAgent  string
	agent      string
}

// NewRobotsChecker creates a new robots.txt checker. A nil client uses a
// plain client with the given timeout.
func NewRobotsChecker(client *http.Client, userAgent string, timeout time.Duration) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &RobotsChecker{
		cache:      gocache.New(robotsTTL, time.Hour),
		httpClient: client,
		userAgent:  userAgent,
		agent:      NormalizeUserAgent(userAgent),
	}
}

// CanFetch checks if the URL can be fetched according to robots.txt.
// Returns (allowed, crawlDelay, error). A robots.txt answered with 401 or
// 403 disallows every path; a missing (other 4xx), unreachable, 5xx or
// unparsable robots.txt allows the fetch. Only 5xx and network failures
// are retried on the next call; everything else is cached per host.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, 0, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	var crawlDelay time.Duration
	if group := data.FindGroup(r.agent); group != nil {
		crawlDelay = group.CrawlDelay
	}
	return data.TestAgent(path, r.agent), crawlDelay, nil
}

// IsAllowed is a convenience method that returns only the allowed status
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	allowed, _, err := r.CanFetch(ctx, rawURL)
	return err == nil && allowed
}

// Clear drops every cached robots.txt
func (r *RobotsChecker) Clear() {
	r.cache.Flush()
}

func (r *RobotsChecker) robotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	origin := target.Scheme + "://" + target.Host
	if cached, ok := r.cache.Get(origin); ok {
		return cached.(*robotstxt.RobotsData), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var data *robotstxt.RobotsData
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// An access-controlled robots.txt means the site is off limits
		data = disallowAll
	case resp.StatusCode >= 500:
		// Transient; not cached so the next fetch retries
		return nil, fmt.Errorf("fetch robots.txt: status %d", resp.StatusCode)
	default:
		// Other 4xx (no robots.txt) allow everything
		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("parse robots.txt: %w", err)
		}
	}

	r.cache.SetDefault(origin, data)
	return data, nil
}

var disallowAll, _ = robotstxt.FromString("User-agent: *\nDisallow: /\n")

// NormalizeUserAgent reduces a user agent to its product token
// ("legalens/0.1 (+https://...)" becomes "legalens") for robots.txt
// group matching
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
