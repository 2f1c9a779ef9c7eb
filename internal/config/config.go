// Package config handles loading and persisting user configuration
// for webviber. Configuration is stored in ~/.webviber/config.json and can be
// overridden with WEBVIBER_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	dirName  = ".webviber"
	fileName = "config.json"

	envPrefix = "WEBVIBER"

	defaultProvider    = ProviderGemini
	defaultTemperature = 0.2
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds the user's configuration.
type Config struct {
	Provider    string  `json:"provider" mapstructure:"provider"`
	Model       string  `json:"model,omitempty" mapstructure:"model"`
	APIKey      string  `json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" mapstructure:"base_url"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName)
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderOllama:
		return "llama3.2:latest"
	default:
		return "gemini-2.5-pro"
	}
}

// Load reads the configuration from disk and environment variables.
// A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	v.SetConfigType("json")
	v.AddConfigPath(Dir())

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	bindEnvVars(v)

	v.SetDefault("provider", defaultProvider)
	v.SetDefault("temperature", defaultTemperature)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	return cfg, nil
}

// bindEnvVars maps each key to its environment variables. The API key also
// honours API_KEY and GEMINI_API_KEY.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("provider")
	_ = v.BindEnv("model")
	_ = v.BindEnv("base_url")
	_ = v.BindEnv("temperature")
	_ = v.BindEnv("api_key", envPrefix+"_API_KEY", "API_KEY", "GEMINI_API_KEY")
}

// ValidateProvider reports whether name is a supported provider.
func ValidateProvider(name string) error {
	switch name {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
		return nil
	}
	return fmt.Errorf("unknown provider %q (want %s, %s or %s)", name, ProviderGemini, ProviderOpenAI, ProviderOllama)
}

// readFile returns the on-disk config without environment overrides, so
// that Set* helpers never persist values that came from the environment.
func readFile() *Config {
	cfg := &Config{Provider: defaultProvider, Temperature: defaultTemperature}
	data, err := os.ReadFile(configPath())
	if err == nil {
		_ = json.Unmarshal(data, cfg)
	}
	return cfg
}

// save persists the config to disk.
func save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}

// SetAPIKey saves the API key to the config file.
func SetAPIKey(key string) error {
	cfg := readFile()
	cfg.APIKey = strings.TrimSpace(key)
	return save(cfg)
}

// SetModel saves the model preference to the config file.
func SetModel(model string) error {
	cfg := readFile()
	cfg.Model = strings.TrimSpace(model)
	return save(cfg)
}

// SetProvider saves the provider and optional base URL to the config file.
// Switching provider clears a model chosen for the previous one.
func SetProvider(provider, baseURL string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if err := ValidateProvider(provider); err != nil {
		return err
	}
	cfg := readFile()
	if cfg.Provider != provider {
		cfg.Model = ""
	}
	cfg.Provider = provider
	cfg.BaseURL = strings.TrimSpace(baseURL)
	return save(cfg)
}

// MaskedKey returns the API key with all but its edges hidden.
func (c *Config) MaskedKey() string {
	if c.APIKey == "" {
		return "(not set)"
	}
	if len(c.APIKey) <= 8 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}
