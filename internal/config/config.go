// Package config loads quill's runtime configuration.
//
// Values come from defaults, then an optional YAML file, then the
// environment. A .env file, when present, is loaded into the environment
// first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when QUILL_CONFIG is unset.
const DefaultPath = "quill.yaml"

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderAzure     = "azure"
)

// Config is the full runtime configuration.
type Config struct {
	Service  string         `yaml:"service"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Provider ProviderConfig `yaml:"provider"`
	Fallback *ProviderRef   `yaml:"fallback,omitempty"`
	Search   SearchConfig   `yaml:"search"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PipelineConfig controls per-call reliability options.
// Zero values leave the option off.
type PipelineConfig struct {
	CallTimeout     time.Duration `yaml:"call_timeout"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerRecovery time.Duration `yaml:"breaker_recovery"`
}

// ProviderRef names a provider and its model.
// An empty model selects the provider's default.
type ProviderRef struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// ProviderConfig selects the primary provider and carries API keys.
// For azure, BaseURL is the resource endpoint and Model the deployment.
type ProviderConfig struct {
	ProviderRef `yaml:",inline"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`

	// Keys are read from the environment only.
	OpenAIKey    string `yaml:"-"`
	AnthropicKey string `yaml:"-"`
	GeminiKey    string `yaml:"-"`
	AzureKey     string `yaml:"-"`
}

// SearchConfig configures the DuckDuckGo searcher.
type SearchConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Service:  "quill",
		Port:     5000,
		LogLevel: "info",
		Server: ServerConfig{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			RequestTimeout:  4 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Provider: ProviderConfig{
			ProviderRef: ProviderRef{Name: ProviderOpenAI},
			Timeout:     60 * time.Second,
		},
		Search: SearchConfig{
			MaxResults: 4,
			Timeout:    15 * time.Second,
		},
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Path returns the config file path from QUILL_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv("QUILL_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the config file at path, if it exists, and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.Provider.Name = strings.ToLower(cfg.Provider.Name)
	if cfg.Fallback != nil {
		cfg.Fallback.Name = strings.ToLower(cfg.Fallback.Name)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("QUILL_SERVICE"); v != "" {
		c.Service = v
	}
	if v := os.Getenv("QUILL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("QUILL_PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv("QUILL_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("QUILL_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUILL_CALL_TIMEOUT %q: %w", v, err)
		}
		c.Pipeline.CallTimeout = d
	}
	c.Provider.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.Provider.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.Provider.GeminiKey = os.Getenv("GEMINI_API_KEY")
	c.Provider.AzureKey = os.Getenv("AZURE_OPENAI_API_KEY")
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" && strings.EqualFold(c.Provider.Name, ProviderAzure) {
		c.Provider.BaseURL = v
	}
	return nil
}

// Validate checks provider names and numeric ranges.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !knownProvider(c.Provider.Name) {
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.Fallback != nil && !knownProvider(c.Fallback.Name) {
		return fmt.Errorf("unknown fallback provider %q", c.Fallback.Name)
	}
	if strings.EqualFold(c.Provider.Name, ProviderAzure) && (c.Provider.BaseURL == "" || c.Provider.Model == "") {
		return fmt.Errorf("azure provider requires base_url (endpoint) and model (deployment)")
	}
	if c.Fallback != nil && strings.EqualFold(c.Fallback.Name, ProviderAzure) {
		return fmt.Errorf("azure cannot be used as fallback provider")
	}
	if c.Pipeline.BreakerFailures < 0 {
		return fmt.Errorf("breaker_failures must not be negative")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search max_results must not be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// APIKey returns the key for the named provider.
func (c Config) APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return c.Provider.OpenAIKey
	case ProviderAnthropic:
		return c.Provider.AnthropicKey
	case ProviderGemini:
		return c.Provider.GeminiKey
	case ProviderAzure:
		return c.Provider.AzureKey
	default:
		return ""
	}
}

func knownProvider(name string) bool {
	switch strings.ToLower(name) {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderAzure:
		return true
	default:
		return false
	}
}
