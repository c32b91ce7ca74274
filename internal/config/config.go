package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend.
const (
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
)

// Store names accepted by StorageConfig.Kind.
const (
	StoreNone   = "none"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds every setting of the slogan generator.
//
// Values are layered: Default, then the YAML file (LoadFile), then the
// environment (ApplyEnv), then command-line flags applied by the caller.
type Config struct {
	// Backend selects the model provider: "ollama" or "anthropic"
	Backend string `yaml:"backend"`

	// BaseURL is the OpenAI-compatible Ollama endpoint
	// Default: http://localhost:11434/v1
	BaseURL string `yaml:"base_url"`

	// ModelName is the default model for the selected backend
	// Default: llama3.2:latest
	ModelName string `yaml:"model_name"`

	// Temperature is the sampling temperature
	// Default: 0.7, Range: 0.0-2.0
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps each generation
	// Default: 500, Range: 1-4096
	MaxTokens int `yaml:"max_tokens"`

	// TimeoutSeconds caps each backend call
	// Default: 30, Range: 1-300
	TimeoutSeconds int `yaml:"timeout"`

	// MaxTurns is the default round budget
	// Default: 5, Range: 1-10
	MaxTurns int `yaml:"max_turns"`

	// ApprovalPhrase is the case-insensitive reviewer approval marker
	// Default: "ship it"
	ApprovalPhrase string `yaml:"approval_phrase"`

	// AnthropicAPIKey is read from the environment only and never saved
	AnthropicAPIKey string `yaml:"-"`

	// AnthropicModel is used when Backend is "anthropic"
	AnthropicModel string `yaml:"anthropic_model"`

	// LogLevel is one of debug, info, warn, error
	// Default: warn
	LogLevel string `yaml:"log_level"`

	// RateLimit is the maximum backend calls per second, 0 for unlimited
	RateLimit float64 `yaml:"rate_limit"`

	// MaxConcurrent bounds in-flight backend calls
	// Default: 10, Range: 1-100
	MaxConcurrent int `yaml:"max_concurrent"`

	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// StorageConfig selects where completed sessions are kept.
type StorageConfig struct {
	// Kind is "none", "sqlite" or "redis"
	Kind string `yaml:"kind"`

	// DBPath is the SQLite database file
	DBPath string `yaml:"db_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db"`

	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address. Default: 127.0.0.1:8000
	Addr string `yaml:"addr"`

	// GenerationTimeoutSeconds caps one generate request
	// Default: 600, Range: 1-3600
	GenerationTimeoutSeconds int `yaml:"generation_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:        BackendOllama,
		BaseURL:        "http://localhost:11434/v1",
		ModelName:      "llama3.2:latest",
		Temperature:    0.7,
		MaxTokens:      500,
		TimeoutSeconds: 30,
		MaxTurns:       5,
		ApprovalPhrase: "ship it",
		AnthropicModel: "claude-sonnet-4-5",
		LogLevel:       "warn",
		MaxConcurrent:  10,
		Storage: StorageConfig{
			Kind:      StoreSQLite,
			DBPath:    defaultDataPath("sessions.db"),
			RedisAddr: "localhost:6379",
			Retention: DefaultRetentionConfig(),
		},
		Server: ServerConfig{
			Addr:                     "127.0.0.1:8000",
			GenerationTimeoutSeconds: 600,
		},
	}
}

// Timeout returns the per-call backend timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerationTimeout returns the per-request API timeout.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Server.GenerationTimeoutSeconds) * time.Second
}

// ActiveModel is the default model of the selected backend.
func (c *Config) ActiveModel() string {
	if c.Backend == BackendAnthropic {
		return c.AnthropicModel
	}
	return c.ModelName
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.BaseURL == "" {
			return fmt.Errorf("base_url is required for the ollama backend")
		}
	case BackendAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic backend")
		}
	default:
		return fmt.Errorf("backend must be %q or %q (got %q)", BackendOllama, BackendAnthropic, c.Backend)
	}

	if strings.TrimSpace(c.ActiveModel()) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0 (got %g)", c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 4096 {
		return fmt.Errorf("max_tokens must be between 1 and 4096 (got %d)", c.MaxTokens)
	}
	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > 300 {
		return fmt.Errorf("timeout must be between 1 and 300 (got %d)", c.TimeoutSeconds)
	}
	if c.MaxTurns < 1 || c.MaxTurns > 10 {
		return fmt.Errorf("max_turns must be between 1 and 10 (got %d)", c.MaxTurns)
	}
	if strings.TrimSpace(c.ApprovalPhrase) == "" {
		return fmt.Errorf("approval_phrase cannot be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error (got %q)", c.LogLevel)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative (got %g)", c.RateLimit)
	}
	if c.MaxConcurrent < 1 || c.MaxConcurrent > 100 {
		return fmt.Errorf("max_concurrent must be between 1 and 100 (got %d)", c.MaxConcurrent)
	}

	switch c.Storage.Kind {
	case StoreNone:
	case StoreSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for sqlite storage")
		}
	case StoreRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for redis storage")
		}
		if c.Storage.RedisDB < 0 {
			return fmt.Errorf("storage.redis_db cannot be negative (got %d)", c.Storage.RedisDB)
		}
	default:
		return fmt.Errorf("storage.kind must be none, sqlite or redis (got %q)", c.Storage.Kind)
	}
	if err := c.Storage.Retention.Validate(); err != nil {
		return fmt.Errorf("storage.retention: %w", err)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.Server.GenerationTimeoutSeconds < 1 || c.Server.GenerationTimeoutSeconds > 3600 {
		return fmt.Errorf("server.generation_timeout must be between 1 and 3600 (got %d)",
			c.Server.GenerationTimeoutSeconds)
	}

	return nil
}

// LoadFile overlays the YAML file at path onto c. A missing file is not an
// error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c.
//
// Environment variables:
//   - OLLAMA_BASE_URL, OLLAMA_MODEL_NAME, OLLAMA_TEMPERATURE,
//     OLLAMA_MAX_TOKENS, OLLAMA_TIMEOUT, OLLAMA_MAX_TURNS
//   - SLOGAN_BACKEND, SLOGAN_APPROVAL_PHRASE, SLOGAN_LOG_LEVEL,
//     SLOGAN_RATE_LIMIT, SLOGAN_MAX_CONCURRENT
//   - SLOGAN_STORE, SLOGAN_DB_PATH, SLOGAN_REDIS_ADDR,
//     SLOGAN_REDIS_PASSWORD, SLOGAN_REDIS_DB
//   - SLOGAN_SESSION_TTL, SLOGAN_SESSION_KEEP (see RetentionConfig)
//   - SLOGAN_SERVER_ADDR, SLOGAN_GENERATION_TIMEOUT
//   - ANTHROPIC_API_KEY, ANTHROPIC_MODEL
//
// Returns an error if any environment variable has an invalid value.
func (c *Config) ApplyEnv() error {
	steps := []error{
		parseEnvString("OLLAMA_BASE_URL", &c.BaseURL),
		parseEnvString("OLLAMA_MODEL_NAME", &c.ModelName),
		parseEnvFloat("OLLAMA_TEMPERATURE", &c.Temperature),
		parseEnvInt("OLLAMA_MAX_TOKENS", &c.MaxTokens),
		parseEnvInt("OLLAMA_TIMEOUT", &c.TimeoutSeconds),
		parseEnvInt("OLLAMA_MAX_TURNS", &c.MaxTurns),
		parseEnvString("SLOGAN_BACKEND", &c.Backend),
		parseEnvString("SLOGAN_APPROVAL_PHRASE", &c.ApprovalPhrase),
		parseEnvString("SLOGAN_LOG_LEVEL", &c.LogLevel),
		parseEnvFloat("SLOGAN_RATE_LIMIT", &c.RateLimit),
		parseEnvInt("SLOGAN_MAX_CONCURRENT", &c.MaxConcurrent),
		parseEnvString("SLOGAN_STORE", &c.Storage.Kind),
		parseEnvString("SLOGAN_DB_PATH", &c.Storage.DBPath),
		parseEnvString("SLOGAN_REDIS_ADDR", &c.Storage.RedisAddr),
		parseEnvString("SLOGAN_REDIS_PASSWORD", &c.Storage.RedisPassword),
		parseEnvInt("SLOGAN_REDIS_DB", &c.Storage.RedisDB),
		parseEnvInt("SLOGAN_SESSION_TTL", &c.Storage.Retention.MaxAgeHours),
		parseEnvInt("SLOGAN_SESSION_KEEP", &c.Storage.Retention.Keep),
		parseEnvString("SLOGAN_SERVER_ADDR", &c.Server.Addr),
		parseEnvInt("SLOGAN_GENERATION_TIMEOUT", &c.Server.GenerationTimeoutSeconds),
		parseEnvString("ANTHROPIC_API_KEY", &c.AnthropicAPIKey),
		parseEnvString("ANTHROPIC_MODEL", &c.AnthropicModel),
	}
	return errors.Join(steps...)
}

// Load builds the effective configuration: defaults, then the file at path
// (DefaultPath when empty), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// settable maps the user-facing names accepted by Set to setters.
var settable = map[string]func(c *Config, v string) error{
	"BACKEND":   func(c *Config, v string) error { c.Backend = v; return nil },
	"URL":       func(c *Config, v string) error { c.BaseURL = v; return nil },
	"MODEL":     func(c *Config, v string) error { c.ModelName = v; return nil },
	"TEMP":      func(c *Config, v string) error { return setFloat(&c.Temperature, v) },
	"TOKENS":    func(c *Config, v string) error { return setInt(&c.MaxTokens, v) },
	"TIMEOUT":   func(c *Config, v string) error { return setInt(&c.TimeoutSeconds, v) },
	"TURNS":     func(c *Config, v string) error { return setInt(&c.MaxTurns, v) },
	"PHRASE":    func(c *Config, v string) error { c.ApprovalPhrase = v; return nil },
	"LOG_LEVEL": func(c *Config, v string) error { c.LogLevel = v; return nil },
	"STORE":     func(c *Config, v string) error { c.Storage.Kind = v; return nil },
	"DB_PATH":   func(c *Config, v string) error { c.Storage.DBPath = v; return nil },
	"REDIS":     func(c *Config, v string) error { c.Storage.RedisAddr = v; return nil },
	"ADDR":      func(c *Config, v string) error { c.Server.Addr = v; return nil },
}

// aliases lets Set accept the environment variable and YAML names too.
var aliases = map[string]string{
	"BASE_URL":         "URL",
	"MODEL_NAME":       "MODEL",
	"TEMPERATURE":      "TEMP",
	"MAX_TOKENS":       "TOKENS",
	"MAX_TURNS":        "TURNS",
	"APPROVAL_PHRASE":  "PHRASE",
	"SERVER_ADDR":      "ADDR",
	"REDIS_ADDR":       "REDIS",
	"STORAGE":          "STORE",
	"OLLAMA_BASE_URL":  "URL",
	"OLLAMA_MODEL":     "MODEL",
	"OLLAMA_MAX_TURNS": "TURNS",
}

// Set assigns one setting by its user-facing name (e.g. "model", "turns",
// "temp") and validates the result. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	name := strings.ToUpper(strings.TrimSpace(key))
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	setter, ok := settable[name]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(SettableKeys(), ", "))
	}

	next := *c
	if err := setter(&next, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// SettableKeys lists the names Set accepts, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultPath is $SLOGAN_CONFIG, or config.yaml under the user config dir.
func DefaultPath() string {
	if p := os.Getenv("SLOGAN_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "slogan-gen.yaml"
	}
	return filepath.Join(dir, "slogan-gen", "config.yaml")
}

func defaultDataPath(name string) string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, ".local", "share", "slogan-gen", name)
}

func setInt(dest *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dest = n
	return nil
}

func setFloat(dest *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dest = f
	return nil
}
