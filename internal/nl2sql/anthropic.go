package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeHaiku4_5_20251001)

// AnthropicConfig configures AnthropicTranslator.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// AnthropicTranslator generates SQL with the Claude Messages API.
type AnthropicTranslator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicTranslator creates a translator. Automatic SDK retries are
// disabled: a failed call is reported once and never repeated.
func NewAnthropicTranslator(cfg AnthropicConfig) (*AnthropicTranslator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &AnthropicTranslator{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Translate builds the prompt and returns the first text block of the reply.
func (t *AnthropicTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	prompt := BuildPrompt(req.NaturalLanguage, req.Schema)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(t.model),
		MaxTokens:   t.maxTokens,
		Temperature: anthropic.Float(t.temperature),
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	message, err := t.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Result{}, wrapGeneration(fmt.Sprintf("claude API status %d", apiErr.StatusCode), err)
		}
		return Result{}, wrapGeneration("claude API call", err)
	}

	text := ""
	for _, block := range message.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			text = textBlock.Text
			break
		}
	}

	sql := extractSQL(text)
	if sql == "" {
		return Result{}, generationError("empty response from Claude")
	}

	return Result{
		SQL:      sql,
		Prompt:   prompt,
		Provider: "anthropic",
		Model:    t.model,
	}, nil
}
