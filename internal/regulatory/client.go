// Package regulatory fetches recent regulatory headlines from RSS/Atom
// feeds or news pages and falls back to predefined updates when none can
// be fetched.
package regulatory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/extract"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/util"
	"github.com/ppiankov/legalens/internal/validate"
	"github.com/ppiankov/legalens/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a source
var ErrDisallowed = errors.New("disallowed by robots.txt")

// maxFeedBytes bounds a single feed or news page
const maxFeedBytes = 5 << 20

// minHeadlineLen filters navigation links out of scraped news pages
const minHeadlineLen = 20

// Client fetches regulatory updates from the configured sources
type Client struct {
	httpClient *http.Client
	userAgent  string
	sources    []string
	maxItems   int
	ttl        time.Duration

	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	classifier *validate.AuthorityClassifier
	strict     *bluemonday.Policy
	markdown   *converter.Converter
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the outbound client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRobots checks robots.txt before each fetch
func WithRobots(r *util.RobotsChecker) Option {
	return func(cl *Client) { cl.robots = r }
}

// WithLimiter paces requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithCache stores parsed updates per source
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for the regulatory section of cfg
func NewClient(cfg *model.Config, opts ...Option) *Client {
	c := &Client{
		userAgent:  cfg.HTTP.UserAgent,
		sources:    slices.Clone(cfg.Regulatory.Sources),
		maxItems:   cfg.Regulatory.MaxItems,
		ttl:        cfg.Regulatory.CacheTTL,
		cache:      cache.Nop{},
		classifier: validate.NewAuthorityClassifier(&cfg.Regulatory.Authority),
		strict:     bluemonday.StrictPolicy(),
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: slog.Default(),
	}
	if c.maxItems <= 0 {
		c.maxItems = 5
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = util.NewHTTPClient(cfg.HTTP)
	}
	return c
}

// Updates returns up to maxItems updates, newest first. It never fails:
// when no source yields anything the predefined updates are returned.
func (c *Client) Updates(ctx context.Context) []model.RegulatoryUpdate {
	updates, err := c.Fetch(ctx)
	if err != nil || len(updates) == 0 {
		c.logger.Warn("using fallback regulatory updates", "error", err, "sources", len(c.sources))
		return model.FallbackUpdates()
	}
	return updates
}

// Fetch retrieves every source concurrently and merges the results.
// It returns an error only when every source failed.
func (c *Client) Fetch(ctx context.Context) ([]model.RegulatoryUpdate, error) {
	if len(c.sources) == 0 {
		return nil, errors.New("no regulatory sources configured")
	}

	perSource := make([][]model.RegulatoryUpdate, len(c.sources))
	errs := make([]error, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perSource[i], errs[i] = c.fetchSource(ctx, src)
			if errs[i] != nil {
				c.logger.Warn("regulatory source failed", "source", src, "error", errs[i])
			}
		}()
	}
	wg.Wait()

	var merged []model.RegulatoryUpdate
	for _, updates := range perSource {
		merged = append(merged, updates...)
	}
	if len(merged) == 0 {
		return nil, errors.Join(errs...)
	}

	merged = dedupe(merged)
	sortNewestFirst(merged)
	if len(merged) > c.maxItems {
		merged = merged[:c.maxItems]
	}
	c.classifier.Annotate(merged)
	return merged, nil
}

func (c *Client) fetchSource(ctx context.Context, src string) ([]model.RegulatoryUpdate, error) {
	key := cache.Key("feed", src)
	var cached []model.RegulatoryUpdate
	if cache.GetJSON(c.cache, key, &cached) {
		c.logger.Debug("regulatory cache hit", "source", src)
		return cached, nil
	}

	if err := validate.RemoteURL(src); err != nil {
		return nil, err
	}

	if c.robots != nil {
		allowed, delay, err := c.robots.CanFetch(ctx, src)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", src, ErrDisallowed)
		}
		if c.limiter != nil {
			c.limiter.ApplyCrawlDelay(src, delay)
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, src); err != nil {
			return nil, err
		}
	}

	body, finalURL, err := c.get(ctx, src)
	if err != nil {
		return nil, err
	}

	updates, err := c.parse(body, finalURL)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(c.cache, key, updates, c.ttl); err != nil {
		c.logger.Debug("regulatory cache store failed", "source", src, "error", err)
	}
	return updates, nil
}

func (c *Client) get(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/html;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Request.URL.String(), nil
}

// parse reads a feed, or scrapes headline links when the page is HTML
func (c *Client) parse(body []byte, sourceURL string) ([]model.RegulatoryUpdate, error) {
	host := ""
	if u, err := url.Parse(sourceURL); err == nil {
		host = u.Hostname()
	}

	entries, err := parseFeed(body)
	if errors.Is(err, errNotFeed) {
		return c.headlines(string(body), sourceURL, host)
	}
	if err != nil {
		return nil, err
	}

	updates := make([]model.RegulatoryUpdate, 0, len(entries))
	for _, e := range entries {
		title := c.plain(e.Title)
		if title == "" {
			continue
		}
		link := e.Link
		if link != "" {
			if abs, err := resolve(sourceURL, link); err == nil {
				link = abs
			}
		}
		updates = append(updates, model.RegulatoryUpdate{
			Title:       title,
			Description: c.plain(e.Description),
			Markdown:    c.toMarkdown(e.Description, sourceURL),
			Link:        link,
			Source:      host,
			Published:   e.Published,
		})
	}
	return updates, nil
}

// headlines turns same-host links with headline-length text into updates
func (c *Client) headlines(page, sourceURL, host string) ([]model.RegulatoryUpdate, error) {
	links, err := extract.Links(page, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var updates []model.RegulatoryUpdate
	for _, l := range links {
		title := strings.Join(strings.Fields(l.Text), " ")
		if !l.IsSameHost || len(title) < minHeadlineLen {
			continue
		}
		updates = append(updates, model.RegulatoryUpdate{
			Title:  title,
			Link:   l.URL,
			Source: host,
		})
	}
	if len(updates) == 0 {
		return nil, errors.New("no headlines found")
	}
	return updates, nil
}

// plain strips markup and entities and collapses whitespace
func (c *Client) plain(s string) string {
	if s == "" {
		return ""
	}
	s = c.strict.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// toMarkdown converts an HTML description to Markdown. Plain-text
// descriptions produce no Markdown.
func (c *Client) toMarkdown(s, sourceURL string) string {
	if !strings.Contains(s, "<") {
		return ""
	}
	md, err := c.markdown.ConvertString(s, converter.WithDomain(sourceURL))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func dedupe(updates []model.RegulatoryUpdate) []model.RegulatoryUpdate {
	seen := make(map[string]bool, len(updates))
	out := updates[:0]
	for _, u := range updates {
		key := u.Link
		if key == "" {
			key = strings.ToLower(u.Title)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

// sortNewestFirst orders dated updates newest first; undated updates keep
// their feed order after the dated ones
func sortNewestFirst(updates []model.RegulatoryUpdate) {
	slices.SortStableFunc(updates, func(a, b model.RegulatoryUpdate) int {
		switch {
		case a.Published == nil && b.Published == nil:
			return 0
		case a.Published == nil:
			return 1
		case b.Published == nil:
			return -1
		}
		return cmp.Compare(b.Published.UnixNano(), a.Published.UnixNano())
	})
}
