// Package config loads csvchat settings from defaults, csvchat.yaml,
// CSVCHAT_ environment variables and command-line flags.
package config

import "time"

// Config holds all settings.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	LLM     LLMConfig     `koanf:"llm"`
	Store   StoreConfig   `koanf:"store"`
	Dataset DatasetConfig `koanf:"dataset"`
	Session SessionConfig `koanf:"session"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
	SessionSecret   string        `koanf:"session_secret"`
	SecureCookies   bool          `koanf:"secure_cookies"`
}

// LLMConfig configures SQL generation.
type LLMConfig struct {
	Provider    string        `koanf:"provider"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	MaxTokens   int64         `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// StoreConfig configures the per-session relational store.
type StoreConfig struct {
	Engine       string        `koanf:"engine"`
	ReadOnly     bool          `koanf:"read_only"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// DatasetConfig configures CSV loading.
type DatasetConfig struct {
	Rename      string            `koanf:"rename"`
	Canonical   []string          `koanf:"canonical"`
	Mapping     map[string]string `koanf:"mapping"`
	PreviewSkip int               `koanf:"preview_skip"`
}

// SessionConfig configures browser sessions.
type SessionConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	CookieName string        `koanf:"cookie_name"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
	File  string `koanf:"file"`
}
