package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
	"github.com/ppiankov/legalens/internal/validate"
	"github.com/ppiankov/legalens/internal/worker"
)

const contractText = `The Supplier shall deliver the goods by the agreed date. ` +
	`Any breach of this agreement by the Supplier results in a penalty of ten percent. ` +
	`Each party bears its own risk of loss during transport.`

// offlineConfig is a config file that keeps tests off the network
const offlineConfig = `
regulatory:
  enabled: false
cache:
  enabled: false
http:
  respect_robots: false
rate_limiting:
  requests_per_second: 0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateHome(t)

	loaded, used, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if used != "" {
		t.Errorf("Expected no config file, got %s", used)
	}

	def := model.DefaultConfig()
	if loaded.Analysis.NumSentences != def.Analysis.NumSentences || loaded.Analysis.TopN != def.Analysis.TopN {
		t.Errorf("Expected default analysis settings, got %+v", loaded.Analysis)
	}
	if !slices.Equal(loaded.Risk.Terms, def.Risk.Terms) {
		t.Errorf("Expected default lexicon, got %v", loaded.Risk.Terms)
	}
	if loaded.HTTP.Timeout != def.HTTP.Timeout {
		t.Errorf("Expected duration to survive the defaults round-trip, got %v", loaded.HTTP.Timeout)
	}
	if want := filepath.Join(home, ".legalens", "cache"); loaded.Cache.Dir != want {
		t.Errorf("Expected cache dir %s, got %s", want, loaded.Cache.Dir)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `
analysis:
  num_sentences: 3
  features: [summary, risks]
risk:
  terms: [fraud, breach]
http:
  timeout: 5s
mail:
  host: smtp.example.com
  from: legal@example.com
`)
	t.Setenv("LEGALENS_ANALYSIS_TOP_N", "7")
	t.Setenv("LEGALENS_MAIL_PASSWORD", "s3cret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LEGALENS_HTTP_HTTPS_PROXY", "http://proxy:3128")

	loaded, used, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if used != path {
		t.Errorf("Expected config file %s, got %s", path, used)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"num_sentences from file", loaded.Analysis.NumSentences, 3},
		{"top_n from env", loaded.Analysis.TopN, 7},
		{"clause_limit default", loaded.Analysis.ClauseLimit, 10},
		{"timeout from file", loaded.HTTP.Timeout, 5 * time.Second},
		{"mail host", loaded.Mail.Host, "smtp.example.com"},
		{"mail port default", loaded.Mail.Port, 587},
		{"mail password from env", loaded.Mail.Password, "s3cret"},
		{"api key from env", loaded.LLM.APIKey, "sk-test"},
		{"proxy from env", loaded.HTTP.HTTPSProxy, "http://proxy:3128"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if !slices.Equal(loaded.Risk.Terms, []string{"fraud", "breach"}) {
		t.Errorf("Expected lexicon from file, got %v", loaded.Risk.Terms)
	}
	if !slices.Equal(loaded.Analysis.Features, []string{"summary", "risks"}) {
		t.Errorf("Expected features from file, got %v", loaded.Analysis.Features)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"zero sentences", "analysis:\n  num_sentences: 0\n"},
		{"unknown feature", "analysis:\n  features: [appendix]\n"},
		{"bad provider", "llm:\n  provider: anthropic\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml", tt.content)
			_, _, err := loadConfig(path)
			if !errors.Is(err, validate.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for an explicit missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(model.LogConfig{Level: "debug", Format: "json"}, &buf)
	log.Debug("hello", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q", buf.String())
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("Unexpected entry: %v", entry)
	}

	buf.Reset()
	log = newLogger(model.LogConfig{Level: "bogus", Format: "text"}, &buf)
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("Expected info-level text output, got %q", buf.String())
	}
	if !log.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info enabled")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"supply agreement", "supply-agreement"},
		{"www.sec.gov", "www.sec.gov"},
		{"a/b\\c:d*e?f", "a_b_c_d_e_f"},
		{"  ..  ", "report"},
		{"", "report"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "password:") || strings.Contains(string(data), "api_key:") {
		t.Error("Secrets must not be written to the config file")
	}

	loaded, _, err := loadConfig(path)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if loaded.Analysis.NumSentences != 5 {
		t.Errorf("Expected default num_sentences, got %d", loaded.Analysis.NumSentences)
	}

	if err := writeDefaultConfig(path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected refusal to overwrite, got %v", err)
	}
}

func TestShowConfig(t *testing.T) {
	c := model.DefaultConfig()
	c.Mail.Password = "hunter2"

	var buf bytes.Buffer
	if err := showConfig(&buf, c); err != nil {
		t.Fatalf("showConfig failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Error("Password leaked into config show output")
	}
	for _, want := range []string{"num_sentences: 5", "mail.password: set", "llm.api_key:   unset"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
}

func TestPrintUpdates(t *testing.T) {
	published := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	updates := []model.RegulatoryUpdate{
		{Title: "SEC Adopts Amendments", Link: "https://www.sec.gov/news/1", Source: "www.sec.gov", Published: &published, Authority: model.TierPrimary},
		model.FallbackUpdates()[0],
	}

	var buf bytes.Buffer
	if err := printUpdates(&buf, updates, false); err != nil {
		t.Fatalf("printUpdates failed: %v", err)
	}
	for _, want := range []string{"• SEC Adopts Amendments", "www.sec.gov, 2026-03-02, primary", "https://www.sec.gov/news/1", "• New Compliance Guidelines"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected %q in:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := printUpdates(&buf, updates, true); err != nil {
		t.Fatalf("printUpdates JSON failed: %v", err)
	}
	var decoded []model.RegulatoryUpdate
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded) != 2 {
		t.Errorf("Expected 2 JSON updates, got %d (%v)", len(decoded), err)
	}
}

func TestRunBatchAnalysis(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	a := writeFile(t, in, "supply_agreement.txt", contractText)
	sub := filepath.Join(in, "copy")
	os.MkdirAll(sub, 0755)
	b := writeFile(t, sub, "supply_agreement.txt", contractText)
	missing := filepath.Join(in, "missing.pdf")

	c := model.DefaultConfig()
	c.Regulatory.Enabled = false
	c.Cache.Enabled = false
	c.HTTP.RespectRobots = false
	p, err := pipeline.NewPipeline(c, pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	var progress bytes.Buffer
	results := runBatchAnalysis(context.Background(), p, []string{a, missing, b}, 2, out, []string{"json", "pdf"}, &progress)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	failed := worker.Failed(results)
	if len(failed) != 1 || failed[0].Source != missing {
		t.Errorf("Expected only the missing file to fail, got %v", failed)
	}

	for _, name := range []string{"supply-agreement.json", "supply-agreement.pdf", "supply-agreement-2.json", "supply-agreement-2.pdf"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
	if !strings.Contains(progress.String(), "✗ "+missing) {
		t.Errorf("Expected failure line in progress:\n%s", progress.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), "legalens v"+Version) {
		t.Errorf("Unexpected version output %q", buf.String())
	}
}

func TestAnalyzeCommand(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", offlineConfig)
	doc := writeFile(t, dir, "supply_agreement.txt", contractText)
	out := filepath.Join(dir, "reports")

	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"analyze", doc, "--config", cfgPath, "--output", out, "--format", "json,md,pdf", "--features", "summary,risks"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "supply-agreement.json"))
	if err != nil {
		t.Fatalf("Expected JSON report: %v", err)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Invalid JSON report: %v", err)
	}
	if !slices.Equal(report.Analysis.Risks, []string{"breach", "penalty", "risk"}) {
		t.Errorf("Expected risks [breach penalty risk], got %v", report.Analysis.Risks)
	}
	if !slices.Equal(report.Features, []string{"summary", "risks"}) {
		t.Errorf("Expected features [summary risks], got %v", report.Features)
	}
	for _, name := range []string{"supply-agreement.md", "supply-agreement.pdf"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}

	// An invalid recipient is rejected before anything is analyzed
	badOut := filepath.Join(dir, "bad")
	rootCmd.SetArgs([]string{"analyze", doc, "--config", cfgPath, "--output", badOut, "--email", "not-an-address"})
	err = rootCmd.Execute()
	if !errors.Is(err, validate.ErrInvalidRecipient) {
		t.Errorf("Expected ErrInvalidRecipient, got %v", err)
	}
	if _, statErr := os.Stat(badOut); !os.IsNotExist(statErr) {
		t.Error("Expected no reports for an invalid recipient")
	}
	analyzeOpts.email = ""
}

func TestPruneCache(t *testing.T) {
	dir := t.TempDir()
	disk := cache.NewDiskCache(dir, time.Hour)
	if err := disk.Set("doc:fresh", []byte("a"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := disk.Set("doc:stale", []byte("b"), time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	c := model.CacheConfig{Enabled: true, Dir: dir, TTL: time.Hour}
	var buf bytes.Buffer
	if err := pruneCache(&buf, c, false); err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Removed 1 expired entries") {
		t.Errorf("Unexpected prune output %q", buf.String())
	}
	if _, ok := disk.Get("doc:fresh"); !ok {
		t.Error("Expected fresh entry to survive prune")
	}

	buf.Reset()
	if err := pruneCache(&buf, c, true); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := disk.Get("doc:fresh"); ok {
		t.Error("Expected clear to remove every entry")
	}

	buf.Reset()
	if err := pruneCache(&buf, model.CacheConfig{}, false); err != nil || !strings.Contains(buf.String(), "No cache directory") {
		t.Errorf("Expected no-op without a directory, got %q (%v)", buf.String(), err)
	}
}
