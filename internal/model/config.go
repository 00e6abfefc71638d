package model

import "time"

// Config holds the complete legalens configuration.
// Field names map to config file keys and LEGALENS_* environment variables
// (e.g. analysis.num_sentences -> LEGALENS_ANALYSIS_NUM_SENTENCES).
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Analysis     AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Risk         RiskConfig        `yaml:"risk" mapstructure:"risk"`
	Regulatory   RegulatoryConfig  `yaml:"regulatory" mapstructure:"regulatory"`
	Mail         MailConfig        `yaml:"mail" mapstructure:"mail"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
}

// HTTPConfig controls outbound fetching of remote documents and feeds
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the fetch cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // Batch analysis workers
}

// RateLimitConfig controls per-host request rates
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// AnalysisConfig controls the text-analysis engine
type AnalysisConfig struct {
	NumSentences int      `yaml:"num_sentences" mapstructure:"num_sentences"` // Summary length
	TopN         int      `yaml:"top_n" mapstructure:"top_n"`                 // Keyword count
	ClauseLimit  int      `yaml:"clause_limit" mapstructure:"clause_limit"`   // Key clause count
	StopWords    string   `yaml:"stop_words" mapstructure:"stop_words"`       // "english" or "custom"
	CustomStop   []string `yaml:"custom_stop_words,omitempty" mapstructure:"custom_stop_words"`
	Features     []string `yaml:"features" mapstructure:"features"` // Report sections to compute
}

// RiskConfig holds the risk lexicon
type RiskConfig struct {
	Terms []string `yaml:"terms" mapstructure:"terms"`
}

// RegulatoryConfig controls regulatory update fetching
type RegulatoryConfig struct {
	Enabled   bool            `yaml:"enabled" mapstructure:"enabled"`
	Sources   []string        `yaml:"sources" mapstructure:"sources"`     // RSS/Atom feeds or HTML pages
	MaxItems  int             `yaml:"max_items" mapstructure:"max_items"` // Updates kept per report
	CacheTTL  time.Duration   `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	Authority AuthorityConfig `yaml:"authority" mapstructure:"authority"`
}

// AuthorityConfig classifies update publishers by host
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"` // host -> tier override
}

// MailConfig holds SMTP delivery settings.
// The password is normally supplied through LEGALENS_MAIL_PASSWORD.
type MailConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"-" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// LLMConfig holds optional LLM brief settings
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"-" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictEvidence bool   `yaml:"strict_evidence" mapstructure:"strict_evidence"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Dir           string   `yaml:"dir" mapstructure:"dir"`
	Formats       []string `yaml:"formats" mapstructure:"formats"` // json, md, pdf
	IncludeFooter bool     `yaml:"include_footer" mapstructure:"include_footer"`
	Verbose       bool     `yaml:"verbose" mapstructure:"verbose"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultRiskTerms returns the built-in risk lexicon
func DefaultRiskTerms() []string {
	return []string{
		"fraud", "penalty", "violation", "risk", "lawsuit",
		"breach", "noncompliance", "litigation", "regulatory", "fine",
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "legalens/0.1 (+https://github.com/ppiankov/legalens)",
			MaxBodyBytes:  10_000_000,
			MaxRetries:    3,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "", // Resolved to ~/.legalens/cache when empty
			TTL:     6 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Analysis: AnalysisConfig{
			NumSentences: 5,
			TopN:         10,
			ClauseLimit:  10,
			StopWords:    "english",
			Features:     []string{"summary", "clauses", "keywords", "risks", "updates"},
		},
		Risk: RiskConfig{
			Terms: DefaultRiskTerms(),
		},
		Regulatory: RegulatoryConfig{
			Enabled:  true,
			Sources:  []string{"https://www.sec.gov/news/pressreleases.rss"},
			MaxItems: 5,
			CacheTTL: time.Hour,
			Authority: AuthorityConfig{
				PrimaryDomains: []string{
					"sec.gov", "finra.org", "cftc.gov", "ftc.gov", "federalreserve.gov",
					"consumerfinance.gov", "europa.eu", "fca.org.uk", "legislation.gov.uk",
				},
				SecondaryDomains: []string{
					"reuters.com", "law360.com", "bloomberglaw.com", "jdsupra.com", "lexology.com",
				},
			},
		},
		Mail: MailConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		LLM: LLMConfig{
			Provider:       "", // Disabled by default
			Model:          "gpt-4o-mini",
			Timeout:        30,
			StrictEvidence: true,
			MaxTokens:      800,
		},
		Output: OutputConfig{
			Dir:           ".",
			Formats:       []string{"json", "md"},
			IncludeFooter: true,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 20 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
