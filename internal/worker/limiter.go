package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests per host. Hosts that advertise a
// robots.txt crawl delay are slowed to at most one request per delay.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables
// pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host may proceed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.limiter(host).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.limiter(host).Allow()
}

// WaitWithDelay waits for the host limiter and then for an additional delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}

	if additionalDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(additionalDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetDomainRate sets a custom rate limit for a specific host
func (l *Limiter) SetDomainRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[strings.ToLower(host)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// ApplyCrawlDelay slows rawURL's host to one request per delay when that is
// stricter than the current limit
func (l *Limiter) ApplyCrawlDelay(rawURL string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	host, err := hostOf(rawURL)
	if err != nil {
		return
	}

	perSecond := rate.Every(delay)
	lim := l.limiter(host)
	if lim.Limit() > perSecond {
		lim.SetLimit(perSecond)
		lim.SetBurst(1)
	}
}

func (l *Limiter) limiter(host string) *rate.Limiter {
	l.mu.RLock()
	lim, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, exists := l.limiters[host]; exists {
		return lim
	}

	lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = lim
	return lim
}

// hostOf returns the lower-case host (with port) of an absolute URL
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
