// Package config loads the server configuration from a YAML file with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	// Workbook is the path to the source spreadsheet (xlsx, csv, tsv or
	// parquet, optionally compressed).
	Workbook string `yaml:"workbook"`
	// Database is the SQLite DSN; ":memory:" by default.
	Database string `yaml:"database"`
	// HTTP configures the server listener.
	HTTP HTTPConfig `yaml:"http"`
	// LLM configures the SQL-generating model.
	LLM LLMConfig `yaml:"llm"`
	// Timeouts bound external calls.
	Timeouts TimeoutConfig `yaml:"timeouts"`
	// Metrics configures the optional Datadog backend.
	Metrics MetricsConfig `yaml:"metrics"`
	// Logging configures the optional Seq log sink.
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider string `yaml:"provider"`
	// Model overrides the provider default.
	Model string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	// Defaults to SHEETQL_LLM_API_KEY. Keys never live in the YAML file.
	APIKeyEnv string `yaml:"apiKeyEnv"`
}

// TimeoutConfig bounds the external calls.
type TimeoutConfig struct {
	LLM   time.Duration `yaml:"llm"`
	Query time.Duration `yaml:"query"`
}

// MetricsConfig configures the Datadog backend.
type MetricsConfig struct {
	// Datadog enables metric submission; credentials come from the
	// standard DD_API_KEY environment variable.
	Datadog bool     `yaml:"datadog"`
	Service string   `yaml:"service"`
	Tags    []string `yaml:"tags"`
}

// LoggingConfig configures structured log shipping.
type LoggingConfig struct {
	// SeqURL, when set, ships logs to a Seq server in addition to the
	// console handler.
	SeqURL string `yaml:"seqURL"`
}

// defaultAPIKeyEnv is the fallback environment variable for the LLM key.
const defaultAPIKeyEnv = "SHEETQL_LLM_API_KEY"

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = ":memory:"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.Timeouts.LLM <= 0 {
		c.Timeouts.LLM = 30 * time.Second
	}
	if c.Timeouts.Query <= 0 {
		c.Timeouts.Query = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Workbook == "" {
		return errors.New("workbook is required")
	}
	if c.LLM.Provider != "anthropic" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("llm.provider must be anthropic or gemini, got %q", c.LLM.Provider)
	}
	return nil
}

// APIKey resolves the LLM API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}
