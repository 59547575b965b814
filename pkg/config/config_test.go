package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	// Check matching defaults
	if cfg.Matching.MatchThreshold != 0.60 {
		t.Errorf("expected match threshold 0.60, got %f", cfg.Matching.MatchThreshold)
	}
	if cfg.Matching.VerifyThreshold != 0.70 {
		t.Errorf("expected verify threshold 0.70, got %f", cfg.Matching.VerifyThreshold)
	}

	// Check verification defaults
	if cfg.Verification.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", cfg.Verification.MaxAttempts)
	}

	// Check scoring defaults
	if cfg.Scoring.Strategy != "heuristic" {
		t.Errorf("expected strategy 'heuristic', got %s", cfg.Scoring.Strategy)
	}

	// Check embedding defaults
	if cfg.Embedding.IncludeAppearance {
		t.Error("expected appearance slots to be disabled by default")
	}

	// Check storage defaults
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("expected storage backend 'file', got %s", cfg.Storage.Backend)
	}
	if !cfg.Storage.EncryptionEnabled {
		t.Error("expected encryption to be enabled by default")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("expected a default data dir")
	}

	// Check logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	configContent := `
matching:
  match_threshold: 0.55
  verify_threshold: 0.8

verification:
  max_attempts: 5

scoring:
  strategy: cosine

embedding:
  include_appearance: true

detector:
  model_dir: /custom/models
  min_confidence: 0.25

storage:
  backend: postgres
  postgres_dsn: postgres://veriface@localhost/veriface

logging:
  level: debug
  file: /var/log/veriface.log
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Matching.MatchThreshold != 0.55 {
		t.Errorf("expected match threshold 0.55, got %f", cfg.Matching.MatchThreshold)
	}
	if cfg.Matching.VerifyThreshold != 0.8 {
		t.Errorf("expected verify threshold 0.8, got %f", cfg.Matching.VerifyThreshold)
	}
	if cfg.Verification.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.Verification.MaxAttempts)
	}
	if cfg.Scoring.Strategy != "cosine" {
		t.Errorf("expected strategy 'cosine', got %s", cfg.Scoring.Strategy)
	}
	if !cfg.Embedding.IncludeAppearance {
		t.Error("expected appearance slots to be enabled")
	}
	if cfg.Detector.ModelDir != "/custom/models" {
		t.Errorf("expected model dir /custom/models, got %s", cfg.Detector.ModelDir)
	}
	if cfg.Detector.MinConfidence != 0.25 {
		t.Errorf("expected min confidence 0.25, got %f", cfg.Detector.MinConfidence)
	}
	if cfg.Storage.Backend != BackendPostgres {
		t.Errorf("expected storage backend 'postgres', got %s", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}

	// Fields absent from the file keep their defaults.
	if !cfg.Storage.EncryptionEnabled {
		t.Error("expected encryption default to survive a partial file")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")

	// Should return default config with error
	if cfg == nil {
		t.Error("expected default config on error")
	}
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := Load(configPath)
	if cfg == nil {
		t.Error("expected default config on error")
	}
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadDefault(t *testing.T) {
	cfg, err := LoadDefault()

	if cfg == nil {
		t.Fatal("LoadDefault returned nil")
	}
	_ = err

	if cfg.Verification.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Verification.MaxAttempts)
	}
}

func TestSave_Roundtrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "veriface.yaml")

	cfg := DefaultConfig()
	cfg.Matching.VerifyThreshold = 0.75
	cfg.Scoring.Strategy = "geometry"

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if loaded.Matching.VerifyThreshold != 0.75 {
		t.Errorf("verify threshold did not roundtrip: got %f", loaded.Matching.VerifyThreshold)
	}
	if loaded.Scoring.Strategy != "geometry" {
		t.Errorf("strategy did not roundtrip: got %s", loaded.Scoring.Strategy)
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "tilde expansion", input: "~/test/path"},
		{name: "no expansion needed", input: "/absolute/path"},
		{name: "relative path", input: "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandPath(tt.input)
			if strings.HasPrefix(tt.input, "~/") {
				if strings.HasPrefix(result, "~") {
					t.Error("tilde was not expanded")
				}
				if !strings.HasSuffix(result, "/test/path") {
					t.Errorf("unexpected expansion: got %s", result)
				}
			} else if result != tt.input {
				t.Errorf("unexpected expansion: got %s", result)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modify:    func(c *Config) {},
			wantError: false,
		},
		{
			name: "match threshold too high",
			modify: func(c *Config) {
				c.Matching.MatchThreshold = 1.5
			},
			wantError: true,
			errorMsg:  "match_threshold must be between 0 and 1",
		},
		{
			name: "match threshold negative",
			modify: func(c *Config) {
				c.Matching.MatchThreshold = -0.1
			},
			wantError: true,
			errorMsg:  "match_threshold must be between 0 and 1",
		},
		{
			name: "verify threshold too high",
			modify: func(c *Config) {
				c.Matching.VerifyThreshold = 2.0
			},
			wantError: true,
			errorMsg:  "verify_threshold must be between 0 and 1",
		},
		{
			name: "max attempts zero",
			modify: func(c *Config) {
				c.Verification.MaxAttempts = 0
			},
			wantError: true,
			errorMsg:  "max_attempts must be positive",
		},
		{
			name: "unknown scoring strategy",
			modify: func(c *Config) {
				c.Scoring.Strategy = "euclidean"
			},
			wantError: true,
			errorMsg:  "invalid scoring strategy",
		},
		{
			name: "valid geometry strategy",
			modify: func(c *Config) {
				c.Scoring.Strategy = "geometry"
			},
			wantError: false,
		},
		{
			name: "valid cosine strategy",
			modify: func(c *Config) {
				c.Scoring.Strategy = "cosine"
			},
			wantError: false,
		},
		{
			name: "negative detector confidence",
			modify: func(c *Config) {
				c.Detector.MinConfidence = -0.5
			},
			wantError: true,
			errorMsg:  "min_confidence must not be negative",
		},
		{
			name: "unknown storage backend",
			modify: func(c *Config) {
				c.Storage.Backend = "s3"
			},
			wantError: true,
			errorMsg:  "invalid storage backend",
		},
		{
			name: "file backend without data dir",
			modify: func(c *Config) {
				c.Storage.DataDir = ""
			},
			wantError: true,
			errorMsg:  "data_dir is required",
		},
		{
			name: "postgres backend without dsn",
			modify: func(c *Config) {
				c.Storage.Backend = BackendPostgres
			},
			wantError: true,
			errorMsg:  "postgres_dsn is required",
		},
		{
			name: "postgres backend with dsn",
			modify: func(c *Config) {
				c.Storage.Backend = BackendPostgres
				c.Storage.PostgresDSN = "postgres://veriface@localhost/veriface"
			},
			wantError: false,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Logging.Level = "chatty"
			},
			wantError: true,
			errorMsg:  "invalid log level",
		},
		{
			name: "valid log level debug",
			modify: func(c *Config) {
				c.Logging.Level = "debug"
			},
			wantError: false,
		},
		{
			name: "valid log level error",
			modify: func(c *Config) {
				c.Logging.Level = "error"
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got nil")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error message doesn't contain '%s': %v", tt.errorMsg, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestConfig_ExpandPaths(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Detector.ModelDir = "~/veriface/models"
	cfg.Storage.DataDir = "~/veriface/data"
	cfg.Logging.File = "~/veriface/log.txt"

	cfg.ExpandPaths()

	if strings.HasPrefix(cfg.Detector.ModelDir, "~") {
		t.Error("Detector.ModelDir tilde was not expanded")
	}
	if strings.HasPrefix(cfg.Storage.DataDir, "~") {
		t.Error("Storage.DataDir tilde was not expanded")
	}
	if strings.HasPrefix(cfg.Logging.File, "~") {
		t.Error("Logging.File tilde was not expanded")
	}
}

func TestConfig_EnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Detector.ModelDir = filepath.Join(tmpDir, "models")
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "veriface.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	if _, err := os.Stat(cfg.Storage.DataDir); os.IsNotExist(err) {
		t.Error("storage data dir was not created")
	}

	galleriesDir := filepath.Join(cfg.Storage.DataDir, "galleries")
	if _, err := os.Stat(galleriesDir); os.IsNotExist(err) {
		t.Error("galleries dir was not created")
	}

	if _, err := os.Stat(cfg.Detector.ModelDir); os.IsNotExist(err) {
		t.Error("models dir was not created")
	}

	logDir := filepath.Dir(cfg.Logging.File)
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Error("log dir was not created")
	}
}

func TestConfig_EnsureDirectories_PostgresBackend(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendPostgres
	cfg.Storage.PostgresDSN = "postgres://veriface@localhost/veriface"
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Detector.ModelDir = filepath.Join(tmpDir, "models")
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "veriface.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	// The postgres backend needs no local gallery directory.
	if _, err := os.Stat(cfg.Storage.DataDir); !os.IsNotExist(err) {
		t.Error("postgres backend should not create a local data dir")
	}
}
