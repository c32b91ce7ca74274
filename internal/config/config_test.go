package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ModelName != "llama3.2:latest" {
		t.Errorf("ModelName = %q", cfg.ModelName)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.MaxTokens != 500 || cfg.TimeoutSeconds != 30 || cfg.MaxTurns != 5 {
		t.Errorf("Unexpected limits: tokens=%d timeout=%d turns=%d", cfg.MaxTokens, cfg.TimeoutSeconds, cfg.MaxTurns)
	}
	if cfg.ApprovalPhrase != "ship it" {
		t.Errorf("ApprovalPhrase = %q", cfg.ApprovalPhrase)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
	if cfg.GenerationTimeout() != 600*time.Second {
		t.Errorf("GenerationTimeout() = %v", cfg.GenerationTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"temperature lower bound", func(c *Config) { c.Temperature = 0 }, ""},
		{"temperature upper bound", func(c *Config) { c.Temperature = 2 }, ""},
		{"temperature too high", func(c *Config) { c.Temperature = 2.1 }, "temperature"},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, "temperature"},
		{"tokens zero", func(c *Config) { c.MaxTokens = 0 }, "max_tokens"},
		{"tokens too high", func(c *Config) { c.MaxTokens = 4097 }, "max_tokens"},
		{"timeout zero", func(c *Config) { c.TimeoutSeconds = 0 }, "timeout"},
		{"timeout too high", func(c *Config) { c.TimeoutSeconds = 301 }, "timeout"},
		{"turns zero", func(c *Config) { c.MaxTurns = 0 }, "max_turns"},
		{"turns eleven", func(c *Config) { c.MaxTurns = 11 }, "max_turns"},
		{"turns ten", func(c *Config) { c.MaxTurns = 10 }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "openai" }, "backend"},
		{"anthropic without key", func(c *Config) { c.Backend = BackendAnthropic }, "ANTHROPIC_API_KEY"},
		{"anthropic with key", func(c *Config) { c.Backend = BackendAnthropic; c.AnthropicAPIKey = "k" }, ""},
		{"empty model", func(c *Config) { c.ModelName = " " }, "model"},
		{"blank phrase", func(c *Config) { c.ApprovalPhrase = "" }, "approval_phrase"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "max_concurrent"},
		{"unknown store", func(c *Config) { c.Storage.Kind = "mongo" }, "storage.kind"},
		{"sqlite without path", func(c *Config) { c.Storage.DBPath = "" }, "db_path"},
		{"no storage", func(c *Config) { c.Storage.Kind = StoreNone; c.Storage.DBPath = "" }, ""},
		{"redis without addr", func(c *Config) { c.Storage.Kind = StoreRedis; c.Storage.RedisAddr = "" }, "redis_addr"},
		{"bad retention", func(c *Config) { c.Storage.Retention.Keep = -1 }, "retention"},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero generation timeout", func(c *Config) { c.Server.GenerationTimeoutSeconds = 0 }, "generation_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434/v1")
	t.Setenv("OLLAMA_MODEL_NAME", "mistral:latest")
	t.Setenv("OLLAMA_TEMPERATURE", "1.2")
	t.Setenv("OLLAMA_MAX_TOKENS", "256")
	t.Setenv("OLLAMA_TIMEOUT", "60")
	t.Setenv("OLLAMA_MAX_TURNS", "7")
	t.Setenv("SLOGAN_APPROVAL_PHRASE", "lgtm")
	t.Setenv("SLOGAN_STORE", "redis")
	t.Setenv("SLOGAN_REDIS_DB", "3")
	t.Setenv("SLOGAN_SESSION_TTL", "48")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.BaseURL != "http://gpu-box:11434/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ModelName != "mistral:latest" {
		t.Errorf("ModelName = %q", cfg.ModelName)
	}
	if cfg.Temperature != 1.2 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.MaxTokens != 256 || cfg.TimeoutSeconds != 60 || cfg.MaxTurns != 7 {
		t.Errorf("Unexpected limits: tokens=%d timeout=%d turns=%d", cfg.MaxTokens, cfg.TimeoutSeconds, cfg.MaxTurns)
	}
	if cfg.ApprovalPhrase != "lgtm" {
		t.Errorf("ApprovalPhrase = %q", cfg.ApprovalPhrase)
	}
	if cfg.Storage.Kind != StoreRedis || cfg.Storage.RedisDB != 3 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Retention.MaxAgeHours != 48 {
		t.Errorf("Retention = %v", cfg.Storage.Retention)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Errorf("AnthropicAPIKey not read from env")
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	t.Setenv("OLLAMA_MAX_TURNS", "many")
	t.Setenv("OLLAMA_TEMPERATURE", "warm")

	err := Default().ApplyEnv()
	if err == nil {
		t.Fatal("Expected error for invalid env values")
	}
	for _, key := range []string{"OLLAMA_MAX_TURNS", "OLLAMA_TEMPERATURE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Error %v does not mention %s", err, key)
		}
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.ModelName = "gemma2:2b"
	cfg.MaxTurns = 3
	cfg.AnthropicAPIKey = "secret"
	cfg.Storage.Retention.Keep = 5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("API key must not be written to the config file")
	}

	loaded := Default()
	if err := loaded.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.ModelName != "gemma2:2b" || loaded.MaxTurns != 3 {
		t.Errorf("Loaded config = %+v", loaded)
	}
	if loaded.Storage.Retention.Keep != 5 {
		t.Errorf("Retention.Keep = %d, want 5", loaded.Storage.Retention.Keep)
	}
}

func TestLoadFile_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	if err := cfg.LoadFile(filepath.Join(dir, "absent.yaml")); err != nil {
		t.Errorf("Missing file should not be an error: %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("max_turns: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadFile(bad); err == nil {
		t.Error("Expected parse error for malformed YAML")
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model_name: from-file\nmax_turns: 4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OLLAMA_MAX_TURNS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ModelName != "from-file" {
		t.Errorf("File value lost: ModelName = %q", cfg.ModelName)
	}
	if cfg.MaxTurns != 8 {
		t.Errorf("Env should override file: MaxTurns = %d", cfg.MaxTurns)
	}

	t.Setenv("OLLAMA_MAX_TURNS", "99")
	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for out-of-range env value")
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(c *Config) bool
	}{
		{"model", "phi3", func(c *Config) bool { return c.ModelName == "phi3" }},
		{"MODEL_NAME", "qwen", func(c *Config) bool { return c.ModelName == "qwen" }},
		{"turns", "9", func(c *Config) bool { return c.MaxTurns == 9 }},
		{"temp", "0.2", func(c *Config) bool { return c.Temperature == 0.2 }},
		{"temperature", "1.5", func(c *Config) bool { return c.Temperature == 1.5 }},
		{"tokens", "1024", func(c *Config) bool { return c.MaxTokens == 1024 }},
		{"timeout", "120", func(c *Config) bool { return c.TimeoutSeconds == 120 }},
		{"url", "http://x/v1", func(c *Config) bool { return c.BaseURL == "http://x/v1" }},
		{"phrase", "approved!", func(c *Config) bool { return c.ApprovalPhrase == "approved!" }},
		{"store", "none", func(c *Config) bool { return c.Storage.Kind == StoreNone }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := Default()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) failed: %v", tt.key, tt.value, err)
			}
			if !tt.check(cfg) {
				t.Errorf("Set(%q, %q) did not apply", tt.key, tt.value)
			}
		})
	}
}

func TestSet_Rejects(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("colour", "blue"); err == nil || !strings.Contains(err.Error(), "unknown setting") {
		t.Errorf("Expected unknown setting error, got %v", err)
	}
	if err := cfg.Set("turns", "eleven"); err == nil {
		t.Error("Expected parse error")
	}
	if err := cfg.Set("turns", "11"); err == nil {
		t.Error("Expected range error")
	}
	if cfg.MaxTurns != 5 {
		t.Errorf("Failed Set must leave config unchanged, MaxTurns = %d", cfg.MaxTurns)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("SLOGAN_CONFIG", "/tmp/custom.yaml")
	if got := DefaultPath(); got != "/tmp/custom.yaml" {
		t.Errorf("DefaultPath() = %q", got)
	}
}

func TestRetentionConfig(t *testing.T) {
	cfg := DefaultRetentionConfig()
	if cfg.MaxAge() != 720*time.Hour || !cfg.Enabled() {
		t.Errorf("Unexpected default retention: %v", cfg)
	}
	if (RetentionConfig{}).Enabled() {
		t.Error("Zero MaxAgeHours should disable pruning")
	}
	if err := (RetentionConfig{MaxAgeHours: 8761}).Validate(); err == nil {
		t.Error("Expected error for MaxAgeHours above range")
	}
	if err := (RetentionConfig{Keep: 10001}).Validate(); err == nil {
		t.Error("Expected error for Keep above range")
	}
	if !strings.Contains(cfg.String(), "MaxAgeHours: 720") {
		t.Errorf("String() = %q", cfg.String())
	}
}
