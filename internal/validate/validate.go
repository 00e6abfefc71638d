// Package validate checks values that cross the program boundary:
// configuration, e-mail recipients and document sources.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

var (
	// ErrInvalidConfig is returned for configuration values the engine
	// cannot honour
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidRecipient is returned for malformed e-mail addresses
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInvalidSource is returned for document sources that are neither a
	// path nor an http(s) URL
	ErrInvalidSource = errors.New("invalid source")
)

// Config rejects settings that would make the analysis meaningless
func Config(cfg *model.Config) error {
	var errs []error
	invalid := func(field string, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s: %w", field, fmt.Sprintf(format, args...), ErrInvalidConfig))
	}

	if cfg.Analysis.NumSentences < 1 {
		invalid("analysis.num_sentences", "must be at least 1, got %d", cfg.Analysis.NumSentences)
	}
	if cfg.Analysis.TopN < 1 {
		invalid("analysis.top_n", "must be at least 1, got %d", cfg.Analysis.TopN)
	}
	if cfg.Analysis.ClauseLimit < 1 {
		invalid("analysis.clause_limit", "must be at least 1, got %d", cfg.Analysis.ClauseLimit)
	}
	switch cfg.Analysis.StopWords {
	case "", "english":
	case "custom":
		if len(cfg.Analysis.CustomStop) == 0 {
			invalid("analysis.custom_stop_words", "required when stop_words is custom")
		}
	default:
		invalid("analysis.stop_words", "must be english or custom, got %q", cfg.Analysis.StopWords)
	}
	if _, err := model.ParseFeatures(cfg.Analysis.Features); err != nil {
		invalid("analysis.features", "%v", err)
	}

	terms := 0
	for _, t := range cfg.Risk.Terms {
		if strings.TrimSpace(t) != "" {
			terms++
		}
	}
	if terms == 0 {
		invalid("risk.terms", "lexicon is empty")
	}

	if cfg.Concurrency.Workers < 1 {
		invalid("concurrency.workers", "must be at least 1, got %d", cfg.Concurrency.Workers)
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		invalid("http.max_body_bytes", "must be positive")
	}
	if cfg.HTTP.MaxRetries < 0 {
		invalid("http.max_retries", "must not be negative")
	}

	if cfg.Regulatory.Enabled {
		for _, src := range cfg.Regulatory.Sources {
			if err := RemoteURL(src); err != nil {
				invalid("regulatory.sources", "%v", err)
			}
		}
		if cfg.Regulatory.MaxItems < 1 {
			invalid("regulatory.max_items", "must be at least 1, got %d", cfg.Regulatory.MaxItems)
		}
	}

	if cfg.Mail.Port < 0 || cfg.Mail.Port > 65535 {
		invalid("mail.port", "out of range: %d", cfg.Mail.Port)
	}
	if cfg.Mail.From != "" {
		if _, err := Recipient(cfg.Mail.From); err != nil {
			invalid("mail.from", "%v", err)
		}
	}

	switch cfg.LLM.Provider {
	case "", "openai", "ollama":
	default:
		invalid("llm.provider", "unsupported provider %q (supported: openai, ollama)", cfg.LLM.Provider)
	}

	for _, f := range cfg.Output.Formats {
		switch strings.ToLower(f) {
		case "json", "md", "markdown", "pdf":
		default:
			invalid("output.formats", "unsupported format %q", f)
		}
	}

	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		invalid("log.format", "must be text or json, got %q", cfg.Log.Format)
	}

	return errors.Join(errs...)
}

// Recipient parses a single e-mail address and returns its bare form
// ("Jane <jane@example.com>" becomes "jane@example.com")
func Recipient(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address: %w", ErrInvalidRecipient)
	}
	if strings.ContainsAny(raw, "\r\n") {
		return "", fmt.Errorf("%q: line break in address: %w", raw, ErrInvalidRecipient)
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%q: %v: %w", raw, err, ErrInvalidRecipient)
	}

	at := strings.LastIndex(addr.Address, "@")
	domain := addr.Address[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", fmt.Errorf("%q: domain must be fully qualified: %w", raw, ErrInvalidRecipient)
	}

	return addr.Address, nil
}

// IsRemote reports whether a source names an http(s) URL rather than a
// local path
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// RemoteURL checks that raw is an absolute http(s) URL with a host
func RemoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q: %v: %w", raw, err, ErrInvalidSource)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https: %w", raw, ErrInvalidSource)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host: %w", raw, ErrInvalidSource)
	}
	return nil
}
