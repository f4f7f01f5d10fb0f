package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"csvchat/internal/dataset"
	"csvchat/internal/nl2sql"
	"csvchat/internal/store"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: CSVCHAT_LLM__MODEL sets llm.model.
const EnvPrefix = "CSVCHAT_"

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "csvchat.yaml"

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"provider":     "llm.provider",
	"model":        "llm.model",
	"base-url":     "llm.base_url",
	"api-key":      "llm.api_key",
	"engine":       "store.engine",
	"read-only":    "store.read_only",
	"rename":       "dataset.rename",
	"preview-skip": "dataset.preview_skip",
	"log-level":    "log.level",
	"log-json":     "log.json",
	"log-file":     "log.file",
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":             ":8080",
		"server.read_timeout":     "15s",
		"server.write_timeout":    "90s",
		"server.request_timeout":  "75s",
		"server.shutdown_timeout": "10s",
		"server.max_upload_bytes": int64(32 << 20),
		"server.session_secret":   "",
		"server.secure_cookies":   false,
		"llm.provider":            nl2sql.ProviderAnthropic,
		"llm.model":               "",
		"llm.base_url":            "",
		"llm.api_key":             "",
		"llm.max_tokens":          int64(nl2sql.DefaultMaxTokens),
		"llm.temperature":         nl2sql.DefaultTemperature,
		"llm.timeout":             "30s",
		"store.engine":            store.EngineDuckDB,
		"store.read_only":         true,
		"store.query_timeout":     "30s",
		"dataset.rename":          dataset.RenamePositional,
		"dataset.canonical":       dataset.CanonicalColumns,
		"dataset.preview_skip":    8,
		"session.ttl":             "30m",
		"session.cookie_name":     "csvchat",
		"log.level":               "info",
		"log.json":                true,
		"log.file":                "",
	}
}

// Load builds the configuration. Precedence, highest first: flags that were
// explicitly set, CSVCHAT_ env vars, the config file, defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func providerKeyFromEnv(provider string) string {
	if provider == nl2sql.ProviderOpenAI {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

// Validate checks enums and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	switch c.LLM.Provider {
	case nl2sql.ProviderAnthropic, nl2sql.ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", nl2sql.ProviderAnthropic, nl2sql.ProviderOpenAI, c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	switch c.Store.Engine {
	case store.EngineDuckDB, store.EngineSQLite:
	default:
		return fmt.Errorf("store.engine must be %q or %q, got %q", store.EngineDuckDB, store.EngineSQLite, c.Store.Engine)
	}
	switch c.Dataset.Rename {
	case dataset.RenamePositional, dataset.RenameMapping, dataset.RenameNone:
	default:
		return fmt.Errorf("dataset.rename must be positional, mapping or none, got %q", c.Dataset.Rename)
	}
	if c.Dataset.Rename == dataset.RenameMapping && len(c.Dataset.Mapping) == 0 {
		return fmt.Errorf("dataset.mapping is required when dataset.rename is mapping")
	}
	if c.Dataset.PreviewSkip < 0 {
		return fmt.Errorf("dataset.preview_skip must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Renamer returns the column renamer described by the dataset section.
func (c DatasetConfig) Renamer() dataset.Renamer {
	return dataset.Renamer{Mode: c.Rename, Canonical: c.Canonical, Mapping: c.Mapping}
}

// FactoryConfig returns the translator settings.
func (c LLMConfig) FactoryConfig() nl2sql.FactoryConfig {
	return nl2sql.FactoryConfig{
		Provider:    c.Provider,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
