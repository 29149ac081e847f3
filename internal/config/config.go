// Package config provides configuration loading for the lead extractor.
// Supports YAML files plus environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAPIKey is the development placeholder credential. Deployments
// must override it via CRM_API_KEY.
const DefaultAPIKey = "my_super_secret_crm_key_12345"

// Config holds all configuration for the service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	OCR           OCRConfig           `yaml:"ocr"`
	Contacts      ContactsConfig      `yaml:"contacts"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// OCRConfig holds inference runtime settings.
type OCRConfig struct {
	RuntimeURL      string        `yaml:"runtime_url"`
	Model           string        `yaml:"model"`
	WeightsToken    string        `yaml:"-"` // HF_TOKEN only, never from file
	QueueDepth      int           `yaml:"queue_depth"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
}

// ContactsConfig holds contact parsing API settings.
type ContactsConfig struct {
	APIKey  string        `yaml:"-"` // GROQ_API_KEY only, never from file
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// APIConfig holds the service's own credential and CORS policy.
type APIConfig struct {
	Key            string   `yaml:"-"` // CRM_API_KEY only, never from file
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     10 * time.Minute, // long PDFs queue behind OCR
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 15 * time.Second,
			MaxUploadBytes:   50 << 20,
		},
		OCR: OCRConfig{
			RuntimeURL:      "http://localhost:9901",
			Model:           "allenai/olmOCR-7B-0225-preview",
			QueueDepth:      16,
			GenerateTimeout: 5 * time.Minute,
		},
		Contacts: ContactsConfig{
			BaseURL: "https://api.groq.com/openai",
			Model:   "llama-3.3-70b-versatile",
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			Key:            DefaultAPIKey,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load reads configuration from an optional YAML file and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistencies. The weights
// token is deliberately not validated here: its absence is fatal at model
// initialization, not at config load.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.OCR.RuntimeURL == "" {
		return fmt.Errorf("ocr runtime URL is required")
	}
	if c.OCR.QueueDepth < 1 {
		return fmt.Errorf("ocr queue depth must be positive, got %d", c.OCR.QueueDepth)
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}

// UsesDefaultAPIKey reports whether the service credential is still the
// development placeholder.
func (c *Config) UsesDefaultAPIKey() bool {
	return c.API.Key == DefaultAPIKey
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OCR_RUNTIME_URL"); v != "" {
		cfg.OCR.RuntimeURL = v
	}
	if v := os.Getenv("OCR_MODEL"); v != "" {
		cfg.OCR.Model = v
	}
	if v := os.Getenv("HF_TOKEN"); v != "" {
		cfg.OCR.WeightsToken = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Contacts.APIKey = v
	}
	if v := os.Getenv("GROQ_MODEL"); v != "" {
		cfg.Contacts.Model = v
	}
	if v := os.Getenv("CRM_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
