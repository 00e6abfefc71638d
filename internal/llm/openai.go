package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/util"
)

// ErrCitationLeak is returned when a brief cites a URL outside the allowlist
var ErrCitationLeak = errors.New("citation leak")

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"]+`)

// OpenAIProvider implements the Provider interface for OpenAI-compatible
// chat completion endpoints (OpenAI and Ollama)
type OpenAIProvider struct {
	name   string
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(model.HTTPConfig{
		Timeout:    time.Duration(config.Timeout) * time.Second,
		HTTPProxy:  config.HTTPProxy,
		HTTPSProxy: config.HTTPSProxy,
		NoProxy:    config.NoProxy,
	})

	return &OpenAIProvider{
		name:   "openai",
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Listing models is the cheapest authenticated call
	_, err := p.client.ListModels(ctx)
	if err != nil {
		slog.Warn("LLM availability check failed", "provider", p.name, "error", err)
		return false
	}
	return true
}

// Summarize generates a summary using OpenAI's Chat Completions API
func (p *OpenAIProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	// Build prompt if not provided
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Report, req.EvidenceURLs)
	}

	modelName := req.Model
	if modelName == "" {
		modelName = p.config.Model
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	// Determine max tokens
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 800
	}

	// Create timeout context
	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize legal document analysis reports. You never give legal advice and only cite allowed URLs.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3, // Lower temperature for more focused, factual output
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)

	citedURLs := extractURLs(summary)
	if p.config.StrictEvidence {
		for _, citedURL := range citedURLs {
			if !slices.Contains(req.EvidenceURLs, citedURL) {
				return nil, fmt.Errorf("%w: %s", ErrCitationLeak, citedURL)
			}
		}
	}

	return &SummarizeResponse{
		Summary:    summary,
		CitedURLs:  citedURLs,
		Model:      modelName,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// extractURLs extracts distinct http(s) URLs from text
func extractURLs(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, url := range urlPattern.FindAllString(text, -1) {
		url = strings.TrimRight(url, ".,;:!?'")
		if !seen[url] {
			seen[url] = true
			unique = append(unique, url)
		}
	}
	return unique
}
