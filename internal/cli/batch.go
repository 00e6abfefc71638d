package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
	"github.com/ppiankov/legalens/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchFormats []string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple documents from a file in parallel",
	Long: `Batch analyzes many documents concurrently:
- Read file paths and URLs from the input file (one per line, # comments)
- Analyze documents in parallel with a configurable worker count
- Generate individual reports for each document

Example:
  legalens batch contracts.txt
  legalens batch contracts.txt --concurrency 8 --output-dir ./reports
  legalens batch urls.txt --format json,pdf --timeout 20m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./legalens-reports", "output directory for reports")
	batchCmd.Flags().StringSliceVar(&batchFormats, "format", nil, "report formats: json, md, pdf (default: output.formats)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	addAnalysisFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}
	applyOutputFlags(cfg, outputDir, batchFormats)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  legalens Batch Analysis\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(stderr, "  Formats:      %s\n", strings.Join(cfg.Output.Formats, ", "))
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	sources, err := worker.ReadSourcesFromFile(file)
	if err != nil {
		return fmt.Errorf("read sources: %w", err)
	}
	fmt.Fprintf(stderr, "✓ Loaded %d documents\n", len(sources))
	fmt.Fprintf(stderr, "⚙️  Analyzing with %d workers...\n\n", cfg.Concurrency.Workers)

	results := runBatchAnalysis(ctx, p, sources, cfg.Concurrency.Workers, cfg.Output.Dir, cfg.Output.Formats, stderr)
	failed := worker.Failed(results)

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", len(results)-len(failed))
	fmt.Fprintf(stderr, "  Failures:  %d\n", len(failed))
	fmt.Fprintf(stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(stderr, "\n")

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(failed), len(results))
	}
	return nil
}

// runBatchAnalysis analyzes sources concurrently and writes each report as
// soon as it completes. Render failures are recorded on the result.
func runBatchAnalysis(ctx context.Context, p *pipeline.Pipeline, sources []string, workers int, dir string, formats []string, progress io.Writer) []*worker.AnalyzeResult {
	var (
		mu           sync.Mutex
		used         = map[string]int{}
		renderFailed = map[int]error{}
	)

	processor := worker.NewBatchProcessor(p, workers)
	processor.OnResult(func(r *worker.AnalyzeResult) {
		mu.Lock()
		defer mu.Unlock()

		if r.Error != nil {
			fmt.Fprintf(progress, "✗ %s: %v\n", r.Source, r.Error)
			return
		}

		base := sanitizeFilename(r.Report.Subject)
		used[base]++
		if n := used[base]; n > 1 {
			base = fmt.Sprintf("%s-%d", base, n)
		}

		if err := writeReport(p.Renderer(), r.Report, pipeline.PathsFor(dir, base, formats)); err != nil {
			renderFailed[r.Index] = err
			fmt.Fprintf(progress, "✗ %s: %v\n", r.Source, err)
			return
		}
		fmt.Fprintf(progress, "✓ %s (risk: %s, %d terms)\n", r.Report.Subject, orDash(r.Report.Profile.Level), len(r.Report.Analysis.Risks))
	})

	results := processor.ProcessSources(ctx, sources)
	for i, err := range renderFailed {
		results[i].Error = err
	}
	return results
}

// writeReport writes every requested output file
func writeReport(r *pipeline.Renderer, report *model.Report, paths pipeline.OutputPaths) error {
	if paths.JSON != "" {
		if err := r.RenderJSON(report, paths.JSON); err != nil {
			return fmt.Errorf("failed to write JSON: %w", err)
		}
	}
	if paths.Markdown != "" {
		if err := r.RenderMarkdown(report, paths.Markdown); err != nil {
			return fmt.Errorf("failed to write Markdown: %w", err)
		}
	}
	if paths.PDF != "" {
		if err := r.RenderPDF(report, paths.PDF); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "report"
	}
	return s
}
