// Package nl2sql turns a natural-language request about the uploaded table
// into a single SQL statement using a hosted language model.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrGeneration marks every failure of the inference call. Callers abort the
// pipeline without executing anything when errors.Is(err, ErrGeneration).
var ErrGeneration = errors.New("sql generation failed")

const (
	// DefaultMaxTokens is the completion budget for one query.
	DefaultMaxTokens = 150
	// DefaultTemperature keeps sampling deterministic.
	DefaultTemperature = 0.0
)

// Request is one translation call.
type Request struct {
	NaturalLanguage string
	Schema          string
}

// Result is the generated SQL plus where it came from.
type Result struct {
	SQL      string `json:"sql"`
	Prompt   string `json:"-"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Translator calls an external completion service.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// Factory builds a Translator for a user-supplied API key.
type Factory func(apiKey string) (Translator, error)

func generationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGeneration, fmt.Sprintf(format, args...))
}

func wrapGeneration(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGeneration, op, err)
}

// fenceLabels are the info strings dropped from the first line of a fence.
var fenceLabels = map[string]bool{
	"": true, "sql": true, "duckdb": true, "sqlite": true,
	"postgres": true, "postgresql": true, "mysql": true,
}

// extractSQL trims the completion text. A reply that is entirely wrapped in
// a Markdown code fence has the fence and a known language label removed;
// nothing else is altered.
func extractSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") && len(trimmed) >= 6 {
		inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 && fenceLabels[strings.ToLower(strings.TrimSpace(inner[:nl]))] {
			inner = inner[nl+1:]
		}
		return strings.TrimSpace(inner)
	}
	return trimmed
}
