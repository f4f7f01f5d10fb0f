package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvchat/internal/dataset"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 75*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Server.SecureCookies, "plain http must get the cookie back")
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.EqualValues(t, 150, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "duckdb", cfg.Store.Engine)
	assert.True(t, cfg.Store.ReadOnly)
	assert.Equal(t, dataset.RenamePositional, cfg.Dataset.Rename)
	assert.Equal(t, dataset.CanonicalColumns, cfg.Dataset.Canonical)
	assert.Equal(t, 8, cfg.Dataset.PreviewSkip)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "csvchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
llm:
  model: from-file
  timeout: 5s
store:
  engine: sqlite
dataset:
  rename: mapping
  mapping:
    views: Views
log:
  level: debug
`), 0o600))

	t.Setenv("CSVCHAT_LLM__MODEL", "from-env")
	t.Setenv("CSVCHAT_STORE__READ_ONLY", "false")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.String("model", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":7000"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "changed flag wins")
	assert.Equal(t, "from-env", cfg.LLM.Model, "env beats file, unchanged flag ignored")
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "sqlite", cfg.Store.Engine)
	assert.False(t, cfg.Store.ReadOnly)
	assert.Equal(t, map[string]string{"views": "Views"}, cfg.Dataset.Mapping)
	assert.Equal(t, "debug", cfg.Log.Level, "unchanged flag does not override file")
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)

	r := cfg.Dataset.Renamer()
	assert.Equal(t, dataset.RenameMapping, r.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }},
		{"upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }},
		{"provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"temperature", func(c *Config) { c.LLM.Temperature = 1.5 }},
		{"engine", func(c *Config) { c.Store.Engine = "postgres" }},
		{"rename", func(c *Config) { c.Dataset.Rename = "fuzzy" }},
		{"mapping without map", func(c *Config) { c.Dataset.Rename = dataset.RenameMapping }},
		{"preview skip", func(c *Config) { c.Dataset.PreviewSkip = -1 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "warn"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestFactoryConfig(t *testing.T) {
	fc := LLMConfig{Provider: "openai", Model: "m", MaxTokens: 150, Timeout: time.Second}.FactoryConfig()
	assert.Equal(t, "openai", fc.Provider)
	assert.Equal(t, "m", fc.Model)
	assert.EqualValues(t, 150, fc.MaxTokens)
}
