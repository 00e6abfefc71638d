package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/legalens/internal/model"
)

// OllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama server
const OllamaBaseURL = "http://localhost:11434/v1"

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		// Ollama speaks the OpenAI chat completions protocol
		if config.BaseURL == "" {
			config.BaseURL = OllamaBaseURL
		}
		if config.APIKey == "" {
			config.APIKey = "ollama"
		}
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		p.name = "ollama"
		return p, nil

	case "":
		// No provider configured - LLM disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model config to llm.Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:       llmCfg.Provider,
		Model:          llmCfg.Model,
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Timeout:        llmCfg.Timeout,
		StrictEvidence: llmCfg.StrictEvidence,
		MaxTokens:      llmCfg.MaxTokens,
		HTTPProxy:      httpCfg.HTTPProxy,
		HTTPSProxy:     httpCfg.HTTPSProxy,
		NoProxy:        httpCfg.NoProxy,
	}
}
