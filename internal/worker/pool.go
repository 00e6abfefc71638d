// Package worker runs document analyses concurrently and paces outbound
// requests per host.
package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. Results are drained
// while jobs are still being submitted, so any number of jobs can be
// queued before Wait.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	collector  *ResultCollector
	collected  chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	startOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs are cancelled with ctx
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collector:  NewResultCollector(),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector. Calling it again
// has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}

		go func() {
			defer close(p.collected)
			for result := range p.results {
				p.collector.Add(result)
			}
		}()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns false when the pool has been shut down
// or its context cancelled.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait stops accepting jobs, waits for queued jobs and returns every
// result in completion order
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collected
	p.cancelFunc()
	return p.collector.Results()
}

// Shutdown cancels running jobs and discards queued ones
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collected
}

func (p *Pool) closeResults() {
	// A pool that never started has no collector to close collected
	p.startOnce.Do(func() { close(p.collected) })
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// ResultCollector provides a safer way to collect results as they arrive
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a copy of the collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
