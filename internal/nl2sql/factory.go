package nl2sql

import (
	"fmt"
	"time"
)

// Provider names accepted by NewFactory.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// FactoryConfig selects and configures the translator backend.
type FactoryConfig struct {
	Provider    string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// NewFactory returns a Factory that builds translators for per-session keys.
func NewFactory(cfg FactoryConfig) (Factory, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		return func(apiKey string) (Translator, error) {
			return NewAnthropicTranslator(AnthropicConfig{
				APIKey:      apiKey,
				BaseURL:     cfg.BaseURL,
				Model:       cfg.Model,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
				Timeout:     cfg.Timeout,
			})
		}, nil
	case ProviderOpenAI:
		return func(apiKey string) (Translator, error) {
			return NewOpenAITranslator(OpenAIConfig{
				APIKey:      apiKey,
				BaseURL:     cfg.BaseURL,
				Model:       cfg.Model,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
				Timeout:     cfg.Timeout,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
