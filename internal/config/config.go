package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Defaults applied when a value is not configured
const (
	DefaultProvider     = "openai"
	DefaultModel        = "gpt-4"
	DefaultTitleModel   = "gpt-3.5-turbo"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultStore        = "json"
	DefaultLiteLLMURL   = "http://localhost:4000"
)

// Config holds all application configuration
type Config struct {
	// API Keys
	OpenAIKey     string `json:"openai_api_key,omitempty"`
	OpenRouterKey string `json:"openrouter_api_key,omitempty"`
	LiteLLMKey    string `json:"litellm_api_key,omitempty"`
	LiteLLMURL    string `json:"litellm_url,omitempty"`

	// Defaults
	DefaultProvider string `json:"default_provider,omitempty"`
	DefaultModel    string `json:"default_model,omitempty"`
	TitleModel      string `json:"title_model,omitempty"`
	SystemPrompt    string `json:"system_prompt,omitempty"`

	// Storage
	Store   string `json:"store,omitempty"`
	DataDir string `json:"data_dir,omitempty"`

	// Optional NATS server that receives transcript updates
	NATSURL string `json:"nats_url,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

var (
	configDir  string
	configFile string
	current    *Config
)

func init() {
	// Use ~/.config/chatgpt-app for config
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	configDir = filepath.Join(home, ".config", "chatgpt-app")
	configFile = filepath.Join(configDir, "config.json")
}

// Load reads the config from disk
func Load() (*Config, error) {
	if current != nil {
		return current, nil
	}

	current = &Config{
		DefaultProvider: DefaultProvider,
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return current, nil // Return default config
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, current); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return current, nil
}

// Save writes the config to disk
func Save(cfg *Config) error {
	// Ensure config directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	current = cfg
	return nil
}

// Get returns the current config, loading if necessary
func Get() *Config {
	if current == nil {
		if _, err := Load(); err != nil {
			current = &Config{DefaultProvider: DefaultProvider}
		}
	}
	return current
}

// field returns a pointer to the config field named by key (or its alias)
func (c *Config) field(key string) (*string, error) {
	switch key {
	case "openai_api_key", "openai":
		return &c.OpenAIKey, nil
	case "openrouter_api_key", "openrouter":
		return &c.OpenRouterKey, nil
	case "litellm_api_key", "litellm":
		return &c.LiteLLMKey, nil
	case "litellm_url":
		return &c.LiteLLMURL, nil
	case "default_provider", "provider":
		return &c.DefaultProvider, nil
	case "default_model", "model":
		return &c.DefaultModel, nil
	case "title_model":
		return &c.TitleModel, nil
	case "system_prompt":
		return &c.SystemPrompt, nil
	case "store":
		return &c.Store, nil
	case "data_dir":
		return &c.DataDir, nil
	case "nats_url", "nats":
		return &c.NATSURL, nil
	case "log_level":
		return &c.LogLevel, nil
	case "theme":
		return &c.Theme, nil
	}
	return nil, fmt.Errorf("unknown config key: %s", key)
}

// Set updates a config value by key
func Set(key, value string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	if key == "store" || key == "default_store" {
		if value != "json" && value != "sqlite" {
			return fmt.Errorf("invalid store %q (supported: json, sqlite)", value)
		}
		key = "store"
	}
	if key == "theme" && value != "dark" && value != "light" {
		return fmt.Errorf("invalid theme %q (supported: dark, light)", value)
	}

	f, err := cfg.field(key)
	if err != nil {
		return err
	}
	*f = value

	return Save(cfg)
}

// Delete removes a config value
func Delete(key string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	f, err := cfg.field(key)
	if err != nil {
		return err
	}
	*f = ""

	return Save(cfg)
}

// envKeys maps provider names to the environment variable holding their key
var envKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"litellm":    "LITELLM_API_KEY",
}

// GetAPIKey returns the API key for a provider (config or env)
func GetAPIKey(provider string) string {
	if provider == "" {
		provider = DefaultProvider
	}
	cfg := Get()
	var key string
	switch provider {
	case "openai":
		key = cfg.OpenAIKey
	case "openrouter":
		key = cfg.OpenRouterKey
	case "litellm":
		key = cfg.LiteLLMKey
	}
	if key != "" {
		return key
	}
	if env, ok := envKeys[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

// GetLiteLLMBaseURL returns the LiteLLM proxy URL (config, env, or default)
func GetLiteLLMBaseURL() string {
	if url := Get().LiteLLMURL; url != "" {
		return url
	}
	if url := os.Getenv("LITELLM_BASE_URL"); url != "" {
		return url
	}
	return DefaultLiteLLMURL
}

// Provider returns the configured provider or the default
func (c *Config) Provider() string {
	if c.DefaultProvider != "" {
		return c.DefaultProvider
	}
	return DefaultProvider
}

// Model returns the configured chat model or the default
func (c *Config) Model() string {
	if c.DefaultModel != "" {
		return c.DefaultModel
	}
	return DefaultModel
}

// TitleModelName returns the model used for title generation
func (c *Config) TitleModelName() string {
	if c.TitleModel != "" {
		return c.TitleModel
	}
	return DefaultTitleModel
}

// SystemPromptText returns the system prompt for new conversations
func (c *Config) SystemPromptText() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return DefaultSystemPrompt
}

// StoreBackend returns the persistence backend name
func (c *Config) StoreBackend() string {
	if c.Store != "" {
		return c.Store
	}
	return DefaultStore
}

// DataPath returns the directory holding conversations and logs
func (c *Config) DataPath() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "chatgpt-app")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return configFile
}

// ListKeys returns configured keys (masked for display)
func ListKeys() map[string]string {
	cfg := Get()
	result := make(map[string]string)

	secrets := []struct {
		name     string
		value    string
		provider string
	}{
		{"openai_api_key", cfg.OpenAIKey, "openai"},
		{"openrouter_api_key", cfg.OpenRouterKey, "openrouter"},
		{"litellm_api_key", cfg.LiteLLMKey, "litellm"},
	}
	for _, s := range secrets {
		if s.value != "" {
			result[s.name] = maskKey(s.value)
		} else if env := os.Getenv(envKeys[s.provider]); env != "" {
			result[s.name] = maskKey(env) + " (env)"
		}
	}

	plain := map[string]string{
		"litellm_url":      cfg.LiteLLMURL,
		"default_provider": cfg.DefaultProvider,
		"default_model":    cfg.DefaultModel,
		"title_model":      cfg.TitleModel,
		"system_prompt":    cfg.SystemPrompt,
		"store":            cfg.Store,
		"data_dir":         cfg.DataDir,
		"nats_url":         cfg.NATSURL,
		"log_level":        cfg.LogLevel,
		"theme":            cfg.Theme,
	}
	for k, v := range plain {
		if v != "" {
			result[k] = v
		}
	}

	return result
}

// SortedKeys returns the keys of ListKeys in display order
func SortedKeys(keys map[string]string) []string {
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// maskKey shows only first 4 and last 4 characters
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// GetPromptPaths returns paths to search for system prompt presets
// Returns both project-local (.chatgpt-app/prompts/) and global (~/.config/chatgpt-app/prompts/) paths
func GetPromptPaths() []string {
	paths := []string{}

	// Project-local path
	cwd, err := os.Getwd()
	if err == nil {
		paths = append(paths, filepath.Join(cwd, ".chatgpt-app", "prompts"))
	}

	// Global config path
	paths = append(paths, filepath.Join(configDir, "prompts"))

	return paths
}
