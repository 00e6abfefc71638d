package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/legalens/internal/model"
)

// gatedAnalyzer counts calls and in-flight analyses and optionally holds
// each analysis until release is closed
type gatedAnalyzer struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
	release  chan struct{}
	started  chan string
}

func (g *gatedAnalyzer) AnalyzeSource(ctx context.Context, source string) (*model.Report, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if g.started != nil {
		g.started <- source
	}

	var wait <-chan time.Time
	if g.hold > 0 {
		wait = time.After(g.hold)
	}
	if g.release != nil || wait != nil {
		select {
		case <-g.release:
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if source == "corrupt.pdf" {
		return nil, errors.New("extract pdf: malformed xref")
	}
	return &model.Report{Subject: source}, nil
}

func submitSources(t *testing.T, pool *Pool, a Analyzer, sources ...string) {
	t.Helper()
	for i, s := range sources {
		if !pool.Submit(&AnalyzeJob{Index: i, Source: s, Analyzer: a}) {
			t.Fatalf("submit %s rejected", s)
		}
	}
}

func TestNewPool_WorkerCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{4, 4},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if got := NewPool(tt.in).workers; got != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.in, tt.want, got)
		}
	}
}

func TestPool_AnalyzesEveryDocument(t *testing.T) {
	a := &gatedAnalyzer{}
	pool := NewPool(3)
	pool.Start()

	sources := make([]string, 25)
	for i := range sources {
		sources[i] = fmt.Sprintf("contract-%02d.pdf", i)
	}
	submitSources(t, pool, a, sources...)

	results := pool.Wait()
	if len(results) != len(sources) {
		t.Fatalf("expected %d results, got %d", len(sources), len(results))
	}
	if int(a.calls.Load()) != len(sources) {
		t.Errorf("expected %d analyses, got %d", len(sources), a.calls.Load())
	}
	seen := map[string]bool{}
	for _, r := range results {
		seen[r.(*AnalyzeResult).Report.Subject] = true
	}
	if len(seen) != len(sources) {
		t.Errorf("expected %d distinct reports, got %d", len(sources), len(seen))
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 4
	a := &gatedAnalyzer{hold: 10 * time.Millisecond}
	pool := NewPool(workers)
	pool.Start()

	sources := make([]string, 30)
	for i := range sources {
		sources[i] = fmt.Sprintf("nda-%d.txt", i)
	}
	submitSources(t, pool, a, sources...)
	pool.Wait()

	if peak := a.peak.Load(); peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	} else if peak < 2 {
		t.Logf("peak concurrency was only %d", peak)
	}
}

func TestPool_FailuresAreResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	submitSources(t, pool, &gatedAnalyzer{}, "lease.md", "corrupt.pdf", "terms.html")

	failed := 0
	for _, r := range pool.Wait() {
		if err := r.GetError(); err != nil {
			failed++
			if r.(*AnalyzeResult).Source != "corrupt.pdf" {
				t.Errorf("unexpected failure for %s: %v", r.(*AnalyzeResult).Source, err)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed document, got %d", failed)
	}
}

func TestPool_QueueLargerThanBuffer(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	sources := make([]string, 100)
	for i := range sources {
		sources[i] = fmt.Sprintf("doc-%d.txt", i)
	}

	a := &gatedAnalyzer{}
	done := make(chan []Result)
	go func() {
		for i, s := range sources {
			pool.Submit(&AnalyzeJob{Index: i, Source: s, Analyzer: a})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != len(sources) {
			t.Errorf("expected %d results, got %d", len(sources), len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait deadlocked")
	}
}

func TestPool_CancelRejectsSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &gatedAnalyzer{release: make(chan struct{}), started: make(chan string, 1)}
	pool := NewPoolWithContext(ctx, 1)
	pool.Start()

	submitSources(t, pool, a, "msa.pdf")
	<-a.started
	cancel()

	if pool.Submit(&AnalyzeJob{Source: "late.pdf", Analyzer: a}) {
		t.Error("expected Submit to be rejected after cancel")
	}
	results := pool.Wait()
	if len(results) != 1 || !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected the running analysis to observe cancellation, got %v", results)
	}
}

func TestPool_Shutdown(t *testing.T) {
	t.Run("without start", func(t *testing.T) {
		pool := NewPool(2)
		done := make(chan struct{})
		go func() {
			pool.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Shutdown without Start blocked")
		}
	})

	t.Run("cancels running analysis", func(t *testing.T) {
		a := &gatedAnalyzer{release: make(chan struct{}), started: make(chan string, 1)}
		pool := NewPool(2)
		pool.Start()
		submitSources(t, pool, a, "agreement.pdf")
		<-a.started

		done := make(chan struct{})
		go func() {
			pool.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Shutdown did not cancel the running analysis")
		}

		if pool.Submit(&AnalyzeJob{Source: "after.pdf", Analyzer: a}) {
			t.Error("expected Submit after Shutdown to be rejected")
		}
	})
}

func TestResultCollector_ReturnsCopy(t *testing.T) {
	c := NewResultCollector()
	c.Add(&AnalyzeResult{Source: "a.txt"})
	c.Add(&AnalyzeResult{Source: "b.txt", Error: errors.New("fetch: 404")})

	res := c.Results()
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	res[0] = nil
	if c.Results()[0] == nil {
		t.Error("expected Results to return a copy")
	}
}
