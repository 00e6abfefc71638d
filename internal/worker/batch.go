package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// Analyzer analyzes one document given as a file path or URL
type Analyzer interface {
	AnalyzeSource(ctx context.Context, source string) (*model.Report, error)
}

// AnalyzeJob analyzes a single source
type AnalyzeJob struct {
	Index    int
	Source   string
	Analyzer Analyzer
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.AnalyzeSource(ctx, j.Source)
	if err != nil {
		return &AnalyzeResult{Index: j.Index, Source: j.Source, Error: err}
	}
	return &AnalyzeResult{Index: j.Index, Source: j.Source, Report: report}
}

// AnalyzeResult is the outcome of one batch entry
type AnalyzeResult struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

// GetError returns the error from the analysis
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many sources concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	onResult    func(*AnalyzeResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// OnResult registers a callback invoked as each source completes. It may
// be called from several goroutines at once.
func (b *BatchProcessor) OnResult(fn func(*AnalyzeResult)) {
	b.onResult = fn
}

// ProcessSources analyzes every source and returns results in input order.
// Sources not started before ctx is cancelled are reported with ctx's
// error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*AnalyzeResult {
	if len(sources) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, source := range sources {
		job := &AnalyzeJob{Index: i, Source: source, Analyzer: b.analyzer}
		if b.onResult != nil {
			job.Analyzer = notifyingAnalyzer{inner: b.analyzer, index: i, fn: b.onResult}
		}
		if !pool.Submit(job) {
			break
		}
	}

	out := make([]*AnalyzeResult, len(sources))
	for _, result := range pool.Wait() {
		r := result.(*AnalyzeResult)
		out[r.Index] = r
	}
	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &AnalyzeResult{Index: i, Source: sources[i], Error: err}
		}
	}
	return out
}

// ProcessFile reads sources from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return b.ProcessSources(ctx, sources), nil
}

// Failed returns the results that carry an error
func Failed(results []*AnalyzeResult) []*AnalyzeResult {
	return slices.DeleteFunc(slices.Clone(results), func(r *AnalyzeResult) bool {
		return r.Error == nil
	})
}

type notifyingAnalyzer struct {
	inner Analyzer
	index int
	fn    func(*AnalyzeResult)
}

func (n notifyingAnalyzer) AnalyzeSource(ctx context.Context, source string) (*model.Report, error) {
	report, err := n.inner.AnalyzeSource(ctx, source)
	n.fn(&AnalyzeResult{Index: n.index, Source: source, Report: report, Error: err})
	return report, err
}

// ReadSourcesFromFile reads file paths or URLs (one per line) from a file
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadSources(file)
}

// ReadSources reads one source per line, skipping blank lines and '#'
// comments and dropping duplicates
func ReadSources(r io.Reader) ([]string, error) {
	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
