package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/util"
	"github.com/ppiankov/legalens/internal/validate"
	"github.com/ppiankov/legalens/internal/worker"
)

var (
	// ErrBodyTooLarge is returned when a document exceeds http.max_body_bytes
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrRobotsDisallowed is returned when robots.txt forbids the fetch
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
)

// fetchSleepFunc is the backoff sleep, replaced in tests
var fetchSleepFunc = time.Sleep

const baseBackoff = 500 * time.Millisecond

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Fetcher fetches remote documents
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
}

// FetchOption configures a Fetcher
type FetchOption func(*Fetcher)

// WithFetchClient replaces the HTTP client
func WithFetchClient(c *http.Client) FetchOption {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithFetchRobots checks robots.txt before every fetch
func WithFetchRobots(r *util.RobotsChecker) FetchOption {
	return func(f *Fetcher) { f.robots = r }
}

// WithFetchLimiter rate-limits fetches per host
func WithFetchLimiter(l *worker.Limiter) FetchOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithFetchCache caches successful fetches for ttl
func WithFetchCache(c cache.Cache, ttl time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// NewFetcher creates a new Fetcher from the HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: cfg.MaxRetries,
		cache:      cache.Nop{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = util.NewHTTPClient(cfg)
	}
	if f.maxBytes <= 0 {
		f.maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}
	if f.maxRetries <= 0 {
		f.maxRetries = 3
	}
	return f
}

// FetchResult contains the fetched document and metadata
type FetchResult struct {
	Body        []byte          `json:"body"`
	ContentType string          `json:"content_type"`
	Meta        model.FetchMeta `json:"meta"`
	Subject     string          `json:"subject"`
	FinalURL    string          `json:"final_url"`
}

// FetchWithRetry fetches rawURL, retrying 429, 5xx and network errors with
// exponential backoff. Successful results are cached.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.Key("doc", rawURL)
	var cached FetchResult
	if cache.GetJSON(f.cache, key, &cached) {
		return &cached, nil
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(baseBackoff << (attempt - 1))
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			_ = cache.SetJSON(f.cache, key, result, f.cacheTTL)
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.maxRetries, lastErr)
}

// Fetch retrieves a single document without retrying
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := validate.RemoteURL(rawURL); err != nil {
		return nil, err
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
		}
		if f.limiter != nil && delay > 0 {
			f.limiter.ApplyCrawlDelay(rawURL, delay)
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}

	// Store selected headers
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	// Read one byte past the limit to detect oversized bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", rawURL, ErrBodyTooLarge, f.maxBytes)
	}

	finalURL := resp.Request.URL.String()

	return &FetchResult{
		Body:        body,
		ContentType: meta.ContentType,
		Meta:        meta,
		Subject:     model.SubjectFromSource(finalURL),
		FinalURL:    finalURL,
	}, nil
}

// isRetryableFetchError reports whether a fetch error is transient:
// 429, 5xx, timeouts and dropped connections.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, io.ErrUnexpectedEOF)
}
