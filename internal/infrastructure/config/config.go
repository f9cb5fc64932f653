// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	threshold := cfg.Matching.Threshold
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds the reconciliation engine settings
type MatchingConfig struct {
	// Threshold is the minimum score an automatic match must reach.
	Threshold float64 `yaml:"threshold"`
	// CloseAmountTolerance is the absolute close-amount tolerance as a
	// decimal string, e.g. "1.00".
	CloseAmountTolerance string `yaml:"close_amount_tolerance"`
	// BucketWidth is the candidate bucket granularity as a decimal string.
	BucketWidth string `yaml:"bucket_width"`
	// CrossProductLimit: inputs at or below this pair count skip pruning.
	CrossProductLimit int `yaml:"cross_product_limit"`
	// ModelPath points at an exported classifier; empty means the rule
	// blend is used.
	ModelPath string `yaml:"model_path"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECONCILE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Matching: MatchingConfig{
			Threshold:            getEnvFloat("RECONCILE_THRESHOLD", 0.75),
			CloseAmountTolerance: getEnv("RECONCILE_CLOSE_TOLERANCE", "1.00"),
			BucketWidth:          getEnv("RECONCILE_BUCKET_WIDTH", "10.00"),
			CrossProductLimit:    getEnvInt("RECONCILE_CROSS_PRODUCT_LIMIT", 10000),
			ModelPath:            os.Getenv("RECONCILE_MODEL_PATH"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILE_DB_PATH", "reconcile.db"),
		},
		API: APIConfig{
			Port: getEnvInt("RECONCILE_API_PORT", 8080),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills unset fields so a sparse config file still yields a
// usable configuration.
func (c *Config) applyDefaults() {
	if c.Matching.Threshold <= 0 {
		c.Matching.Threshold = 0.75
	}
	if c.Matching.CloseAmountTolerance == "" {
		c.Matching.CloseAmountTolerance = "1.00"
	}
	if c.Matching.BucketWidth == "" {
		c.Matching.BucketWidth = "10.00"
	}
	if c.Matching.CrossProductLimit <= 0 {
		c.Matching.CrossProductLimit = 10000
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconcile.db"
	}
	if c.API.Port <= 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}
