// Package config provides configuration management for VeriFace.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all VeriFace configuration.
type Config struct {
	Matching     MatchingConfig     `yaml:"matching"`
	Verification VerificationConfig `yaml:"verification"`
	Scoring      ScoringConfig      `yaml:"scoring"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Detector     DetectorConfig     `yaml:"detector"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// MatchingConfig holds score acceptance thresholds.
type MatchingConfig struct {
	// MatchThreshold accepts one-shot gallery matches.
	MatchThreshold float64 `yaml:"match_threshold"`
	// VerifyThreshold accepts verification session probes. It is stricter
	// than MatchThreshold in the default profile.
	VerifyThreshold float64 `yaml:"verify_threshold"`
}

// VerificationConfig holds verification session settings.
type VerificationConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// ScoringConfig selects the record scoring strategy.
type ScoringConfig struct {
	// Strategy is one of "heuristic", "geometry", or "cosine".
	Strategy string `yaml:"strategy"`
}

// EmbeddingConfig holds embedding layout settings.
type EmbeddingConfig struct {
	IncludeAppearance bool `yaml:"include_appearance"`
}

// DetectorConfig holds face detector settings.
type DetectorConfig struct {
	// ModelDir is the directory holding the dlib model files.
	ModelDir string `yaml:"model_dir"`
	// MinConfidence drops detections below this detector confidence.
	MinConfidence float64 `yaml:"min_confidence"`
}

// StorageConfig holds gallery persistence settings.
type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend           string `yaml:"backend"`
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
	// PostgresDSN is required when Backend is "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Storage backend names accepted in StorageConfig.Backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Matching: MatchingConfig{
			MatchThreshold:  0.60,
			VerifyThreshold: 0.70,
		},
		Verification: VerificationConfig{
			MaxAttempts: 3,
		},
		Scoring: ScoringConfig{
			Strategy: "heuristic",
		},
		Embedding: EmbeddingConfig{
			IncludeAppearance: false,
		},
		Detector: DetectorConfig{
			ModelDir:      filepath.Join(homeDir, ".local/share/veriface/models"),
			MinConfidence: 0.0,
		},
		Storage: StorageConfig{
			Backend:           BackendFile,
			DataDir:           filepath.Join(homeDir, ".local/share/veriface"),
			EncryptionEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/veriface/veriface.log"),
		},
	}
}

// Load loads configuration from the specified file. Fields absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	// Try system config first
	if _, err := os.Stat("/etc/veriface/veriface.yaml"); err == nil {
		return Load("/etc/veriface/veriface.yaml")
	}

	// Try user config
	userConfig := UserConfigPath()
	if userConfig != "" {
		if _, err := os.Stat(userConfig); err == nil {
			return Load(userConfig)
		}
	}

	// Return defaults
	return DefaultConfig(), nil
}

// UserConfigPath returns the per-user configuration file location, or ""
// when the home directory cannot be determined.
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config/veriface/veriface.yaml")
}

// Save writes the configuration to the specified file as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate thresholds
	if c.Matching.MatchThreshold < 0 || c.Matching.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be between 0 and 1, got %f", c.Matching.MatchThreshold)
	}
	if c.Matching.VerifyThreshold < 0 || c.Matching.VerifyThreshold > 1 {
		return fmt.Errorf("verify_threshold must be between 0 and 1, got %f", c.Matching.VerifyThreshold)
	}

	// Validate verification settings
	if c.Verification.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.Verification.MaxAttempts)
	}

	// Validate scoring strategy
	validStrategies := map[string]bool{"heuristic": true, "geometry": true, "cosine": true}
	if !validStrategies[c.Scoring.Strategy] {
		return fmt.Errorf("invalid scoring strategy: %s (must be heuristic, geometry, or cosine)", c.Scoring.Strategy)
	}

	// Validate detector settings
	if c.Detector.MinConfidence < 0 {
		return fmt.Errorf("min_confidence must not be negative, got %f", c.Detector.MinConfidence)
	}

	// Validate storage settings
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("data_dir is required for the file backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be file or postgres)", c.Storage.Backend)
	}

	// Validate logging level
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Detector.ModelDir = ExpandPath(c.Detector.ModelDir)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	if c.Storage.Backend == BackendFile {
		if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}

		galleriesDir := filepath.Join(c.Storage.DataDir, "galleries")
		if err := os.MkdirAll(galleriesDir, 0700); err != nil {
			return fmt.Errorf("failed to create galleries directory: %w", err)
		}
	}

	if c.Detector.ModelDir != "" {
		if err := os.MkdirAll(c.Detector.ModelDir, 0755); err != nil {
			return fmt.Errorf("failed to create models directory: %w", err)
		}
	}

	if c.Logging.File != "" {
		logDir := filepath.Dir(c.Logging.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}
