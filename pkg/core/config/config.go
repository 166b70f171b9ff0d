// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Identify    IdentifyConfig    `yaml:"identify"`
	Credential  CredentialConfig  `yaml:"credential"`
	Store       StoreConfig       `yaml:"store"`
	FileStore   FileStoreConfig   `yaml:"file_store"`
	Entitlement EntitlementConfig `yaml:"entitlement"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is identifications per second per client; 0 disables.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// IdentifyConfig configures the chat-completion classification call
type IdentifyConfig struct {
	Endpoint        string        `yaml:"endpoint"` // base URL, e.g. "https://api.openai.com/v1/"
	Model           string        `yaml:"model"`
	MaxTokens       int           `yaml:"max_tokens"`
	Temperature     float64       `yaml:"temperature"`
	JPEGQuality     int           `yaml:"jpeg_quality"`
	Timeout         time.Duration `yaml:"timeout"`
	StripCodeFences bool          `yaml:"strip_code_fences"`
	// Seed makes random fallbacks reproducible; 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// CredentialConfig says where the model API key comes from. A static APIKey
// wins over Endpoint.
type CredentialConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StoreConfig selects the collections backend
type StoreConfig struct {
	Type string `yaml:"type"` // "memory" (default), "sqlite" or "postgres"
	DSN  string `yaml:"dsn"`
}

// FileStoreConfig selects the snapshot archive backend
type FileStoreConfig struct {
	Type       string `yaml:"type"`      // "none" (default), "memory", "filesystem" or "s3"
	MaxFiles   int    `yaml:"max_files"` // memory backend only
	BaseDir    string `yaml:"base_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// Enabled reports whether submitted photos are archived.
func (c FileStoreConfig) Enabled() bool {
	return c.Type != "" && c.Type != "none"
}

// Params converts the config into provider factory parameters.
func (c FileStoreConfig) Params() map[string]string {
	p := map[string]string{
		"base_dir": c.BaseDir,
		"bucket":   c.S3Bucket,
		"region":   c.S3Region,
		"prefix":   c.S3Prefix,
		"endpoint": c.S3Endpoint,
	}
	if c.MaxFiles > 0 {
		p["max_files"] = strconv.Itoa(c.MaxFiles)
	}
	return p
}

// EntitlementConfig gates identification
type EntitlementConfig struct {
	Mode        string   `yaml:"mode"` // "open" (default) or "allowlist"
	Subscribers []string `yaml:"subscribers"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Load loads configuration from a YAML file. Unset fields keep their
// defaults and environment variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Default returns default configuration with environment overrides applied.
func Default() *Config {
	cfg := defaults()
	// Malformed numeric env values are reported by Load; here they are ignored.
	_ = applyEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			Timeout:   60 * time.Second,
			RateLimit: 2,
			RateBurst: 5,
		},
		Identify: IdentifyConfig{
			Endpoint:    "https://api.openai.com/v1/",
			Model:       "gpt-4o-mini",
			MaxTokens:   50,
			Temperature: 0.3,
			JPEGQuality: 80,
			Timeout:     30 * time.Second,
		},
		Credential: CredentialConfig{
			Timeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Type: "memory",
		},
		FileStore: FileStoreConfig{
			Type: "none",
		},
		Entitlement: EntitlementConfig{
			Mode: "open",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credential.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_ENDPOINT"); v != "" {
		cfg.Identify.Endpoint = v
	}
	if v := os.Getenv("CREDENTIAL_ENDPOINT"); v != "" {
		cfg.Credential.Endpoint = v
	}
	if v := os.Getenv("IDENTIFY_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid IDENTIFY_SEED: %w", err)
		}
		cfg.Identify.Seed = seed
	}

	// Collections store env overrides
	if v := os.Getenv("STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}

	// Snapshot store env overrides
	if v := os.Getenv("FILE_STORE_TYPE"); v != "" {
		cfg.FileStore.Type = v
	}
	if v := os.Getenv("FILE_STORE_BASE_DIR"); v != "" {
		cfg.FileStore.BaseDir = v
	}
	if v := os.Getenv("FILE_STORE_S3_BUCKET"); v != "" {
		cfg.FileStore.S3Bucket = v
	}
	if v := os.Getenv("FILE_STORE_S3_REGION"); v != "" {
		cfg.FileStore.S3Region = v
	}
	if v := os.Getenv("FILE_STORE_S3_PREFIX"); v != "" {
		cfg.FileStore.S3Prefix = v
	}
	if v := os.Getenv("FILE_STORE_S3_ENDPOINT"); v != "" {
		cfg.FileStore.S3Endpoint = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Identify.JPEGQuality < 0 || c.Identify.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("identify.jpeg_quality %d out of range", c.Identify.JPEGQuality))
	}
	if c.Identify.Temperature < 0 || c.Identify.Temperature > 2 {
		errs = append(errs, fmt.Errorf("identify.temperature %v out of range", c.Identify.Temperature))
	}
	if c.Credential.APIKey == "" && c.Credential.Endpoint == "" {
		errs = append(errs, errors.New("credential: set api_key (OPENAI_API_KEY) or endpoint (CREDENTIAL_ENDPOINT)"))
	}
	switch c.FileStore.Type {
	case "", "none", "memory", "filesystem", "s3":
	default:
		errs = append(errs, fmt.Errorf("file_store.type %q unknown", c.FileStore.Type))
	}
	if c.FileStore.MaxFiles < 0 {
		errs = append(errs, errors.New("file_store.max_files must not be negative"))
	}
	switch c.Entitlement.Mode {
	case "", "open", "allowlist":
	default:
		errs = append(errs, fmt.Errorf("entitlement.mode %q unknown", c.Entitlement.Mode))
	}
	return errors.Join(errs...)
}
