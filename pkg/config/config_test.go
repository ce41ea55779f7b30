package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.Dimension != 256 {
		t.Errorf("Expected Dimension=256, got %d", cfg.Store.Dimension)
	}
	if cfg.Store.SaveInterval != 5*time.Minute {
		t.Errorf("Expected SaveInterval=5m, got %v", cfg.Store.SaveInterval)
	}

	if cfg.Tiers.ColdCodec != "lz4" {
		t.Errorf("Expected ColdCodec=lz4, got %s", cfg.Tiers.ColdCodec)
	}
	if cfg.Tiers.FrozenCodec != "zstd" {
		t.Errorf("Expected FrozenCodec=zstd, got %s", cfg.Tiers.FrozenCodec)
	}

	if cfg.Session.Strategy != "git-directory" {
		t.Errorf("Expected Strategy=git-directory, got %s", cfg.Session.Strategy)
	}

	if cfg.Embedding.Provider != "noop" {
		t.Errorf("Expected Provider=noop, got %s", cfg.Embedding.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{name: "valid config", modify: func(c *Config) {}, expectErr: false},
		{
			name:      "empty graph path",
			modify:    func(c *Config) { c.Store.GraphPath = "" },
			expectErr: true,
		},
		{
			name:      "negative dimension",
			modify:    func(c *Config) { c.Store.Dimension = -1 },
			expectErr: true,
		},
		{
			name:      "invalid session strategy",
			modify:    func(c *Config) { c.Session.Strategy = "invalid" },
			expectErr: true,
		},
		{
			name:      "invalid logging level",
			modify:    func(c *Config) { c.Logging.Level = "invalid" },
			expectErr: true,
		},
		{
			name:      "invalid embedding provider",
			modify:    func(c *Config) { c.Embedding.Provider = "openai" },
			expectErr: true,
		},
		{
			name:      "invalid cold codec",
			modify:    func(c *Config) { c.Tiers.ColdCodec = "gzip" },
			expectErr: true,
		},
		{
			name:      "zero retrieval weights",
			modify:    func(c *Config) { c.Retrieval.TermWeight, c.Retrieval.VectorWeight, c.Retrieval.RecencyWeight = 0, 0, 0 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error with missing config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}
	if cfg.Store.Dimension != 256 {
		t.Errorf("Expected default dimension 256, got %d", cfg.Store.Dimension)
	}
}

func TestLoadConfig_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  graph_path: /tmp/test.amem
  log_path: /tmp/test.imem
  dimension: 64
session:
  strategy: manual
  manual_id: test-session
logging:
  level: debug
  format: json
embedding:
  provider: tfidf
  dimension: 64
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.GraphPath != "/tmp/test.amem" {
		t.Errorf("Expected graph_path=/tmp/test.amem, got %s", cfg.Store.GraphPath)
	}
	if cfg.Store.Dimension != 64 {
		t.Errorf("Expected dimension=64, got %d", cfg.Store.Dimension)
	}
	if cfg.Session.Strategy != "manual" {
		t.Errorf("Expected strategy=manual, got %s", cfg.Session.Strategy)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level=debug, got %s", cfg.Logging.Level)
	}
	if cfg.Embedding.Provider != "tfidf" {
		t.Errorf("Expected provider=tfidf, got %s", cfg.Embedding.Provider)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{
		Store: StoreConfig{
			GraphPath: filepath.Join(tmpDir, "subdir", "graph.amem"),
			LogPath:   filepath.Join(tmpDir, "subdir", "log.imem"),
		},
	}

	if err := cfg.EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "subdir")); os.IsNotExist(err) {
		t.Error("Config directory was not created")
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if path == "" {
		t.Error("ConfigPath returned empty string")
	}

	homeDir, _ := os.UserHomeDir()
	expected := filepath.Join(homeDir, ".cogmem")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}
