// Package pipeline wires extraction, analysis, scoring, regulatory updates
// and rendering into a single document analysis run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/legalens/internal/analysis"
	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/extract"
	"github.com/ppiankov/legalens/internal/llm"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/regulatory"
	"github.com/ppiankov/legalens/internal/score"
	"github.com/ppiankov/legalens/internal/text"
	"github.com/ppiankov/legalens/internal/util"
	"github.com/ppiankov/legalens/internal/validate"
	"github.com/ppiankov/legalens/internal/worker"
)

// UpdateSource supplies regulatory updates for a report
type UpdateSource interface {
	Updates(ctx context.Context) []model.RegulatoryUpdate
}

// staticUpdates serves the predefined updates when fetching is disabled
type staticUpdates struct{}

func (staticUpdates) Updates(context.Context) []model.RegulatoryUpdate {
	return model.FallbackUpdates()
}

// Pipeline orchestrates the complete analysis process
type Pipeline struct {
	config     *model.Config
	engine     *analysis.Engine
	features   model.FeatureSet
	registry   *extract.Registry
	fetcher    *Fetcher
	scorer     *score.Scorer
	updates    UpdateSource
	summarizer *llm.Summarizer // nil if disabled
	renderer   *Renderer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithUpdateSource replaces the regulatory update source
func WithUpdateSource(u UpdateSource) Option {
	return func(p *Pipeline) { p.updates = u }
}

// WithFetcher replaces the remote document fetcher
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithSummarizer replaces the LLM summarizer
func WithSummarizer(s *llm.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// NewEngine builds an analysis engine from the analysis and risk sections
func NewEngine(cfg *model.Config) *analysis.Engine {
	var stop text.StopWords = text.English()
	if strings.EqualFold(cfg.Analysis.StopWords, "custom") {
		stop = text.NewStopWordSet(cfg.Analysis.CustomStop...)
	}
	return analysis.New(
		analysis.WithStopWords(stop),
		analysis.WithLexicon(analysis.NewLexicon(cfg.Risk.Terms...)),
		analysis.WithNumSentences(cfg.Analysis.NumSentences),
		analysis.WithTopN(cfg.Analysis.TopN),
		analysis.WithClauseLimit(cfg.Analysis.ClauseLimit),
	)
}

// NewPipeline creates a new pipeline with the given configuration.
// Robots checks, rate limits and the cache are shared between document
// fetching and regulatory updates.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	features, err := model.ParseFeatures(cfg.Analysis.Features)
	if err != nil {
		return nil, err
	}

	engine := NewEngine(cfg)
	p := &Pipeline{
		config:   cfg,
		engine:   engine,
		features: features,
		registry: extract.NewRegistry(),
		scorer:   score.NewScorer(engine.Lexicon().Len()),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil || p.updates == nil {
		client := util.NewHTTPClient(cfg.HTTP)
		store := cache.New(cfg.Cache)
		limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst)
		var robots *util.RobotsChecker
		if cfg.HTTP.RespectRobots {
			robots = util.NewRobotsChecker(client, cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
		}

		if p.fetcher == nil {
			p.fetcher = NewFetcher(cfg.HTTP,
				WithFetchClient(client),
				WithFetchRobots(robots),
				WithFetchLimiter(limiter),
				WithFetchCache(store, cfg.Cache.TTL),
			)
		}
		if p.updates == nil {
			p.updates = staticUpdates{}
			if cfg.Regulatory.Enabled {
				p.updates = regulatory.NewClient(cfg,
					regulatory.WithHTTPClient(client),
					regulatory.WithRobots(robots),
					regulatory.WithLimiter(limiter),
					regulatory.WithCache(store),
					regulatory.WithLogger(p.logger),
				)
			}
		}
	}

	if p.summarizer == nil && cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			p.logger.Warn("failed to initialize LLM provider", "provider", cfg.LLM.Provider, "error", err)
		} else {
			p.summarizer = s
		}
	}

	return p, nil
}

// Engine returns the analysis engine
func (p *Pipeline) Engine() *analysis.Engine {
	return p.engine
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Features returns the default enabled report sections
func (p *Pipeline) Features() model.FeatureSet {
	return p.features
}

// Updates returns the regulatory updates a report would carry
func (p *Pipeline) Updates(ctx context.Context) []model.RegulatoryUpdate {
	if p.updates == nil {
		return model.FallbackUpdates()
	}
	return p.updates.Updates(ctx)
}

// Request describes one document to analyze. Either Data (raw document
// bytes, extracted by format) or Text (already plain text) is used.
type Request struct {
	Source      string // File path, URL or upload name shown in the report
	Name        string // Name used for format detection, defaults to Source
	ContentType string
	Data        []byte
	Text        string
	Subject     string           // Defaults to a name derived from Source
	Features    model.FeatureSet // nil uses the pipeline default
	Meta        *model.FetchMeta
}

// AnalyzeSource analyzes a local file path or an http(s) URL
func (p *Pipeline) AnalyzeSource(ctx context.Context, source string) (*model.Report, error) {
	req, err := p.LoadSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, req)
}

// LoadSource reads a local file or fetches a URL into a Request
func (p *Pipeline) LoadSource(ctx context.Context, source string) (Request, error) {
	if validate.IsRemote(source) {
		fetched, err := p.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return Request{}, fmt.Errorf("fetch: %w", err)
		}
		return Request{
			Source:      source,
			Name:        fetched.FinalURL,
			ContentType: fetched.ContentType,
			Data:        fetched.Body,
			Subject:     fetched.Subject,
			Meta:        &fetched.Meta,
		}, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return Request{}, fmt.Errorf("read document: %w", err)
	}
	return Request{Source: source, Data: data}, nil
}

// AnalyzeText analyzes plain text
func (p *Pipeline) AnalyzeText(ctx context.Context, subject, raw string) (*model.Report, error) {
	return p.Analyze(ctx, Request{Source: subject, Subject: subject, Text: raw})
}

// Analyze runs extraction, the engine, scoring, regulatory updates and the
// optional LLM brief, in that order. The brief runs last and never changes
// the analysis.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*model.Report, error) {
	start := p.now()

	raw, format := req.Text, "text"
	if req.Data != nil {
		name := req.Name
		if name == "" {
			name = req.Source
		}
		extracted, err := p.registry.ExtractSource(ctx, extract.Source{
			Name:        name,
			ContentType: req.ContentType,
			Data:        req.Data,
		})
		if err != nil {
			return nil, err
		}
		raw, format = extracted.Text, extracted.Format
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := req.Features
	if features == nil {
		features = p.features
	}

	result := p.engine.Analyze(raw)
	profile := p.scorer.Calculate(*result)
	filterFeatures(result, features)

	subject := req.Subject
	if subject == "" {
		subject = model.SubjectFromSource(req.Source)
	}

	report := &model.Report{
		ID:         uuid.NewString(),
		Subject:    subject,
		Source:     req.Source,
		Format:     format,
		CreatedAt:  start.UTC(),
		FetchMeta:  req.Meta,
		Features:   features.Names(),
		Analysis:   *result,
		Principles: model.DefaultPrinciples(),
	}
	if features.Has(model.FeatureRisks) {
		report.Profile = profile
	}
	if features.Has(model.FeatureUpdates) && p.updates != nil {
		report.Updates = p.updates.Updates(ctx)
	}

	// LLM brief runs after scoring and never affects it
	if p.summarizer.IsEnabled() {
		brief, err := p.summarizer.GenerateBrief(ctx, *report)
		if err != nil {
			p.logger.Warn("LLM brief generation failed", "subject", subject, "error", err)
		} else if brief != nil {
			report.LLM = brief
		}
	}

	p.logger.Info("analyzed document",
		"id", report.ID,
		"source", req.Source,
		"format", format,
		"sentences", result.Stats.Sentences,
		"risks", len(result.Risks),
		"level", report.Profile.Level,
		"duration", p.now().Sub(start),
	)
	return report, nil
}

// filterFeatures clears the sections of result that are not enabled
func filterFeatures(result *model.AnalysisResult, features model.FeatureSet) {
	if !features.Has(model.FeatureSummary) {
		result.Summary = ""
	}
	if !features.Has(model.FeatureClauses) {
		result.KeyClauses = nil
	}
	if !features.Has(model.FeatureKeywords) {
		result.Keywords = []string{}
		result.Frequencies = nil
	}
	if !features.Has(model.FeatureRisks) {
		result.Risks = []string{}
		result.RiskMatches = nil
	}
}

// OutputPaths names the files a report is written to. Empty paths are skipped.
type OutputPaths struct {
	JSON     string
	Markdown string
	PDF      string
}

// PathsFor derives output paths in dir for the given formats
func PathsFor(dir, base string, formats []string) OutputPaths {
	var out OutputPaths
	for _, f := range formats {
		switch strings.ToLower(f) {
		case "json":
			out.JSON = filepath.Join(dir, base+".json")
		case "md", "markdown":
			out.Markdown = filepath.Join(dir, base+".md")
		case "pdf":
			out.PDF = filepath.Join(dir, base+".pdf")
		}
	}
	return out
}

// RenderReport renders the report to the requested outputs and prints a
// console summary to stdout
func (p *Pipeline) RenderReport(report *model.Report, paths OutputPaths, verbose bool) error {
	return p.renderReport(os.Stdout, os.Stderr, report, paths, verbose)
}

func (p *Pipeline) renderReport(stdout, stderr io.Writer, report *model.Report, paths OutputPaths, verbose bool) error {
	if paths.JSON != "" {
		if err := p.renderer.RenderJSON(report, paths.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(stderr, "✓ Wrote JSON: %s\n", paths.JSON)
		}
	}

	if paths.Markdown != "" {
		if err := p.renderer.RenderMarkdown(report, paths.Markdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(stderr, "✓ Wrote Markdown: %s\n", paths.Markdown)
		}
	}

	if paths.PDF != "" {
		if err := p.renderer.RenderPDF(report, paths.PDF); err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		if verbose {
			fmt.Fprintf(stderr, "✓ Wrote PDF: %s\n", paths.PDF)
		}
	}

	// LLM brief goes to a separate file next to the Markdown report
	if report.LLM != nil && report.LLM.Enabled && paths.Markdown != "" {
		llmPath := strings.TrimSuffix(paths.Markdown, ".md") + ".llm.md"
		if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
			p.logger.Warn("failed to write LLM brief", "path", llmPath, "error", err)
		} else if verbose {
			fmt.Fprintf(stderr, "✓ Wrote LLM Brief: %s\n", llmPath)
		}
	}

	p.renderer.RenderSummary(stdout, report)
	return nil
}
