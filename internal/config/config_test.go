package config

import (
	"path/filepath"
	"strings"
	"testing"
)

// useTempConfig points the package at a config file inside a temp dir
func useTempConfig(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	oldConfigDir := configDir
	oldConfigFile := configFile
	configDir = tmpDir
	configFile = filepath.Join(tmpDir, "config.json")
	current = nil // Reset cached config
	t.Cleanup(func() {
		configDir = oldConfigDir
		configFile = oldConfigFile
		current = nil
	})
	return tmpDir
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "short key",
			key:      "abc",
			expected: "****",
		},
		{
			name:     "exactly 8 chars",
			key:      "12345678",
			expected: "****",
		},
		{
			name:     "long key",
			key:      "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "empty key",
			key:      "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskKey(tt.key)
			if result != tt.expected {
				t.Errorf("maskKey(%q) = %q, want %q", tt.key, result, tt.expected)
			}
		})
	}
}

func TestConfigLoadSave(t *testing.T) {
	useTempConfig(t)

	// Test loading non-existent config (should return defaults)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultProvider != "openai" {
		t.Errorf("default provider = %q, want %q", cfg.DefaultProvider, "openai")
	}

	cfg.OpenAIKey = "test-key-12345"
	cfg.DefaultModel = "gpt-4o"
	cfg.Store = "sqlite"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Reset cache and reload
	current = nil
	cfg2, err := Load()
	if err != nil {
		t.Fatalf("Load() after save error = %v", err)
	}
	if cfg2.OpenAIKey != "test-key-12345" {
		t.Errorf("OpenAIKey = %q, want %q", cfg2.OpenAIKey, "test-key-12345")
	}
	if cfg2.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q, want %q", cfg2.DefaultModel, "gpt-4o")
	}
	if cfg2.StoreBackend() != "sqlite" {
		t.Errorf("StoreBackend() = %q, want %q", cfg2.StoreBackend(), "sqlite")
	}
}

func TestConfigSet(t *testing.T) {
	useTempConfig(t)

	tests := []struct {
		key   string
		value string
		check func(*Config) bool
	}{
		{
			key:   "openai",
			value: "sk-test123",
			check: func(c *Config) bool { return c.OpenAIKey == "sk-test123" },
		},
		{
			key:   "provider",
			value: "openrouter",
			check: func(c *Config) bool { return c.DefaultProvider == "openrouter" },
		},
		{
			key:   "model",
			value: "gpt-4-turbo",
			check: func(c *Config) bool { return c.DefaultModel == "gpt-4-turbo" },
		},
		{
			key:   "title_model",
			value: "gpt-4o-mini",
			check: func(c *Config) bool { return c.TitleModelName() == "gpt-4o-mini" },
		},
		{
			key:   "system_prompt",
			value: "Answer in haiku.",
			check: func(c *Config) bool { return c.SystemPromptText() == "Answer in haiku." },
		},
		{
			key:   "store",
			value: "sqlite",
			check: func(c *Config) bool { return c.Store == "sqlite" },
		},
		{
			key:   "nats",
			value: "nats://localhost:4222",
			check: func(c *Config) bool { return c.NATSURL == "nats://localhost:4222" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) error = %v", tt.key, tt.value, err)
			}

			if !tt.check(Get()) {
				t.Errorf("Set(%q, %q) did not update config correctly", tt.key, tt.value)
			}
		})
	}

	if err := Set("unknown_key", "value"); err == nil {
		t.Error("Set() with unknown key should return error")
	}
	if err := Set("store", "postgres"); err == nil {
		t.Error("Set() with unsupported store should return error")
	}
}

func TestConfigDelete(t *testing.T) {
	useTempConfig(t)

	if err := Set("openai", "sk-test123"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := Delete("openai"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	cfg := Get()
	if cfg.OpenAIKey != "" {
		t.Errorf("OpenAIKey = %q after delete, want empty", cfg.OpenAIKey)
	}

	if err := Delete("unknown_key"); err == nil {
		t.Error("Delete() with unknown key should return error")
	}
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	useTempConfig(t)
	t.Setenv("OPENAI_API_KEY", "env-test-key")

	// Should return env var when config is empty
	if key := GetAPIKey("openai"); key != "env-test-key" {
		t.Errorf("GetAPIKey() = %q, want %q", key, "env-test-key")
	}
	if key := GetAPIKey(""); key != "env-test-key" {
		t.Errorf("GetAPIKey(\"\") = %q, want default provider key", key)
	}

	// Set config value - should take precedence
	if err := Set("openai", "config-test-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if key := GetAPIKey("openai"); key != "config-test-key" {
		t.Errorf("GetAPIKey() with config = %q, want %q", key, "config-test-key")
	}

	if key := GetAPIKey("unknown"); key != "" {
		t.Errorf("GetAPIKey(unknown) = %q, want empty", key)
	}
}

func TestListKeysMasksSecrets(t *testing.T) {
	useTempConfig(t)
	t.Setenv("OPENROUTER_API_KEY", "or-1234567890abcd")

	if err := Set("openai", "sk-1234567890abcdef"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	keys := ListKeys()
	if keys["openai_api_key"] != "sk-1...cdef" {
		t.Errorf("openai_api_key = %q, want masked", keys["openai_api_key"])
	}
	if !strings.HasSuffix(keys["openrouter_api_key"], "(env)") {
		t.Errorf("openrouter_api_key = %q, want env marker", keys["openrouter_api_key"])
	}
	if _, ok := keys["nats_url"]; ok {
		t.Error("unset keys should not be listed")
	}

	sorted := SortedKeys(keys)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] > sorted[i] {
			t.Errorf("SortedKeys() not sorted: %v", sorted)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	if cfg.Provider() != DefaultProvider {
		t.Errorf("Provider() = %q, want %q", cfg.Provider(), DefaultProvider)
	}
	if cfg.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", cfg.Model(), DefaultModel)
	}
	if cfg.TitleModelName() != DefaultTitleModel {
		t.Errorf("TitleModelName() = %q, want %q", cfg.TitleModelName(), DefaultTitleModel)
	}
	if cfg.SystemPromptText() != DefaultSystemPrompt {
		t.Errorf("SystemPromptText() = %q, want %q", cfg.SystemPromptText(), DefaultSystemPrompt)
	}
	if cfg.StoreBackend() != DefaultStore {
		t.Errorf("StoreBackend() = %q, want %q", cfg.StoreBackend(), DefaultStore)
	}
	if !strings.HasSuffix(cfg.DataPath(), filepath.Join(".local", "share", "chatgpt-app")) {
		t.Errorf("DataPath() = %q", cfg.DataPath())
	}
}

func TestLiteLLMBaseURL(t *testing.T) {
	useTempConfig(t)
	t.Setenv("LITELLM_BASE_URL", "")

	if got := GetLiteLLMBaseURL(); got != DefaultLiteLLMURL {
		t.Errorf("GetLiteLLMBaseURL() = %q, want %q", got, DefaultLiteLLMURL)
	}

	t.Setenv("LITELLM_BASE_URL", "http://proxy:4000")
	if got := GetLiteLLMBaseURL(); got != "http://proxy:4000" {
		t.Errorf("GetLiteLLMBaseURL() = %q, want env value", got)
	}

	if err := Set("litellm_url", "http://config:4000"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := GetLiteLLMBaseURL(); got != "http://config:4000" {
		t.Errorf("GetLiteLLMBaseURL() = %q, want config value", got)
	}
}

func TestConfigPath(t *testing.T) {
	if ConfigPath() == "" {
		t.Error("ConfigPath() returned empty string")
	}
	if len(GetPromptPaths()) == 0 {
		t.Error("GetPromptPaths() returned no paths")
	}
}
