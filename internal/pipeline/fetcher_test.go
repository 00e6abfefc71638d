package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/util"
	"github.com/ppiankov/legalens/internal/worker"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = origSleep })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", `"v1"`)
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL+"/contracts/master_services-agreement.html")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Body) != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if result.ContentType != "text/html" || result.Meta.StatusCode != 200 || result.Meta.ETag != `"v1"` {
		t.Errorf("Unexpected meta: %+v", result.Meta)
	}
	if result.Subject != "master services agreement" {
		t.Errorf("Unexpected subject: %q", result.Subject)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	var slept []time.Duration
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) { slept = append(slept, d) }
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Body) != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
	if len(slept) != 2 || slept[0] != baseBackoff || slept[1] != 2*baseBackoff {
		t.Errorf("Expected exponential backoff, got %v", slept)
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	// 404 is not retryable, so should fail immediately
	if got := err.Error(); got != "unexpected status: 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("Expected *StatusError with 404, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Unexpected error: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 101))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 100
	_, err := NewFetcher(cfg).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Expected ErrBodyTooLarge, got %v", err)
	}

	cfg.MaxBodyBytes = 101
	if _, err := NewFetcher(cfg).Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected body at the limit to pass, got %v", err)
	}
}

func TestFetch_RejectsNonHTTP(t *testing.T) {
	_, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), "file:///etc/passwd")
	if err == nil {
		t.Fatal("Expected error for file URL")
	}
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	var docHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		docHits.Add(1)
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	robots := util.NewRobotsChecker(server.Client(), "test-agent", time.Second)
	fetcher := NewFetcher(testHTTPConfig(), WithFetchRobots(robots), WithFetchLimiter(worker.NewLimiter(0, 1)))

	_, err := fetcher.Fetch(context.Background(), server.URL+"/private/nda.pdf")
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Fatalf("Expected ErrRobotsDisallowed, got %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/public/nda.txt"); err != nil {
		t.Fatalf("Expected allowed path to fetch, got %v", err)
	}
	if docHits.Load() != 1 {
		t.Errorf("Expected 1 document hit, got %d", docHits.Load())
	}
}

func TestFetchWithRetry_Cache(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "The supplier shall pay a penalty.")
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(testHTTPConfig(), WithFetchCache(c, time.Minute))

	for i := 0; i < 2; i++ {
		result, err := fetcher.FetchWithRetry(context.Background(), server.URL+"/terms.txt")
		if err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
		if string(result.Body) != "The supplier shall pay a penalty." || result.ContentType != "text/plain" {
			t.Errorf("Fetch %d: unexpected result %+v", i, result)
		}
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected second fetch to hit the cache, got %d requests", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"502 wrapped", fmt.Errorf("fetch: %w", &StatusError{Code: 502}), true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"401", &StatusError{Code: 401}, false},
		{"connection refused", fmt.Errorf("fetch: %w", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}), true},
		{"connection reset", fmt.Errorf("read body: %w", syscall.ECONNRESET), true},
		{"canceled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"too large", ErrBodyTooLarge, false},
		{"robots", ErrRobotsDisallowed, false},
		{"plain", errors.New("create request: invalid URL"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestIsRetryableFetchError_Nil(t *testing.T) {
	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}
