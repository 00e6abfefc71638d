package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalens/internal/mail"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
	"github.com/ppiankov/legalens/internal/validate"
)

// analyzeOptions holds the analyze command flags
type analyzeOptions struct {
	timeout   time.Duration
	outputDir string
	name      string
	formats   []string
	email     string
}

var analyzeOpts analyzeOptions

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url|->",
	Short: "Analyze a single legal document and write reports",
	Long: `Analyze extracts the text of a PDF, HTML, Markdown or plain-text document
(a local path, an http(s) URL, or "-" for stdin) and produces:
- An extractive summary in document order
- Key clauses that mention risk terms
- Top keywords with a frequency chart
- Detected risk terms with a transparent risk profile
- Recent regulatory updates

Example:
  legalens analyze contract.pdf
  legalens analyze contract.pdf --format json,md,pdf --output ./reports
  legalens analyze https://example.com/terms --features summary,risks
  legalens analyze contract.pdf --email counsel@example.com
  cat nda.txt | legalens analyze -`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.DurationVar(&analyzeOpts.timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	f.StringVarP(&analyzeOpts.outputDir, "output", "o", "", "output directory (default: output.dir)")
	f.StringVar(&analyzeOpts.name, "name", "", "base name for report files (default: derived from the document)")
	f.StringSliceVar(&analyzeOpts.formats, "format", nil, "report formats: json, md, pdf (default: output.formats)")
	f.StringVar(&analyzeOpts.email, "email", "", "e-mail the PDF report to this address")
	addAnalysisFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}
	applyOutputFlags(cfg, analyzeOpts.outputDir, analyzeOpts.formats)

	// Reject a bad recipient before doing any work
	recipient := ""
	if analyzeOpts.email != "" {
		addr, err := validate.Recipient(analyzeOpts.email)
		if err != nil {
			return err
		}
		recipient = addr
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeOpts.timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Features:  %s\n", strings.Join(cfg.Analysis.Features, ", "))
		fmt.Fprintf(os.Stderr, "Timeout:   %v\n", analyzeOpts.timeout)
		fmt.Fprintf(os.Stderr, "Cache:     %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	report, err := analyzeInput(ctx, p, source, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d sentences (%s)\n", report.Analysis.Stats.Sentences, report.Format)
		fmt.Fprintf(os.Stderr, "✓ Found %d risk terms\n", len(report.Analysis.Risks))
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM brief using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	base := analyzeOpts.name
	if base == "" {
		base = sanitizeFilename(report.Subject)
	}
	paths := pipeline.PathsFor(cfg.Output.Dir, base, cfg.Output.Formats)
	if err := p.RenderReport(report, paths, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if recipient != "" {
		if err := emailReport(ctx, recipient, report); err != nil {
			return fmt.Errorf("e-mail failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ E-mailed %s to %s\n", mail.AttachmentName, recipient)
	}
	return nil
}

// analyzeInput analyzes a path or URL, or stdin when source is "-"
func analyzeInput(ctx context.Context, p *pipeline.Pipeline, source string, stdin io.Reader) (*model.Report, error) {
	if source != "-" {
		return p.AnalyzeSource(ctx, source)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return p.Analyze(ctx, pipeline.Request{Source: "stdin", Subject: "stdin", Data: data, ContentType: "text/plain"})
}

func emailReport(ctx context.Context, recipient string, report *model.Report) error {
	pdf, err := pipeline.RenderPDF(report)
	if err != nil {
		return err
	}
	return mail.NewDispatcher(cfg.Mail, logger).Send(ctx, recipient, pdf)
}

// addAnalysisFlags registers the flags shared by analyze, batch and serve
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("features", nil, "report sections: summary, clauses, keywords, risks, updates (default: all)")
	f.Int("sentences", 0, "summary length in sentences (default: analysis.num_sentences)")
	f.Int("top", 0, "number of keywords (default: analysis.top_n)")
	f.Bool("no-cache", false, "disable cache (force fresh fetch)")
	f.Bool("no-footer", false, "disable footer in Markdown reports")
	f.Bool("no-updates-fetch", false, "use the predefined regulatory updates instead of fetching")
	f.Bool("insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	f.String("llm", "", "enable an LLM brief with this provider (openai, ollama)")
	f.String("llm-model", "", "LLM model name (default: llm.model)")
}

// applyAnalysisFlags copies explicitly set flags over the loaded config
func applyAnalysisFlags(cmd *cobra.Command, c *model.Config) error {
	f := cmd.Flags()
	if f.Changed("features") {
		features, _ := f.GetStringSlice("features")
		if _, err := model.ParseFeatures(features); err != nil {
			return err
		}
		c.Analysis.Features = features
	}
	if f.Changed("sentences") {
		c.Analysis.NumSentences, _ = f.GetInt("sentences")
	}
	if f.Changed("top") {
		c.Analysis.TopN, _ = f.GetInt("top")
	}
	if noCache, _ := f.GetBool("no-cache"); noCache {
		c.Cache.Enabled = false
	}
	if noFooter, _ := f.GetBool("no-footer"); noFooter {
		c.Output.IncludeFooter = false
	}
	if noFetch, _ := f.GetBool("no-updates-fetch"); noFetch {
		c.Regulatory.Enabled = false
	}
	if insecure, _ := f.GetBool("insecure"); insecure {
		c.HTTP.InsecureTLS = true
	}
	if f.Changed("http-proxy") {
		c.HTTP.HTTPProxy, _ = f.GetString("http-proxy")
	}
	if f.Changed("https-proxy") {
		c.HTTP.HTTPSProxy, _ = f.GetString("https-proxy")
	}
	if provider, _ := f.GetString("llm"); provider != "" {
		c.LLM.Provider = provider
		c.LLM.StrictEvidence = true // Always enforce
		if provider == "openai" && c.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if f.Changed("llm-model") {
		c.LLM.Model, _ = f.GetString("llm-model")
	}
	return validate.Config(c)
}

func applyOutputFlags(c *model.Config, dir string, formats []string) {
	if dir != "" {
		c.Output.Dir = dir
	}
	if len(formats) > 0 {
		c.Output.Formats = formats
	}
}
