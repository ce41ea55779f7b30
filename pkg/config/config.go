package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete store configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Tiers     TiersConfig     `mapstructure:"tiers"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Session   SessionConfig   `mapstructure:"session"`
}

// StoreConfig locates the on-disk graph and immortal log and bounds the
// graph's fixed feature-vector width (spec.md §3).
type StoreConfig struct {
	GraphPath       string        `mapstructure:"graph_path"`
	LogPath         string        `mapstructure:"log_path"`
	Dimension       int           `mapstructure:"dimension"`
	SaveInterval    time.Duration `mapstructure:"save_interval"`
	MaintenanceTick time.Duration `mapstructure:"maintenance_tick"`
}

// TiersConfig sets the age thresholds the session passes to the storage
// tiering component to demote events out of the hot working set.
// ColdCodec, FrozenCodec and FrozenLevel are validated here but not read
// by internal/tier, whose CodecForTier fixes the codec for each tier.
type TiersConfig struct {
	WarmAfter   time.Duration `mapstructure:"warm_after"`
	ColdAfter   time.Duration `mapstructure:"cold_after"`
	FrozenAfter time.Duration `mapstructure:"frozen_after"`
	ColdCodec   string        `mapstructure:"cold_codec"`   // "lz4"
	FrozenCodec string        `mapstructure:"frozen_codec"` // "zstd"
	FrozenLevel int           `mapstructure:"frozen_level"` // zstd compression level
}

// RetrievalConfig tunes smart-retrieval fan-out and the per-request token
// budget. TermWeight, VectorWeight and RecencyWeight are validated here but
// not read by internal/retrieval, which fuses scores with DefaultWeights
// unless a request carries its own weights.
type RetrievalConfig struct {
	MaxConcurrentFanout int     `mapstructure:"max_concurrent_fanout"`
	TermWeight          float64 `mapstructure:"term_weight"`
	VectorWeight        float64 `mapstructure:"vector_weight"`
	RecencyWeight       float64 `mapstructure:"recency_weight"`
	DefaultTokenBudget  float64 `mapstructure:"default_token_budget"`
	TokensPerChar       float64 `mapstructure:"tokens_per_char"`
}

// EmbeddingConfig selects and sizes the feature-vector provider.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // "noop" or "tfidf"
	Dimension int    `mapstructure:"dimension"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SessionConfig selects how the engine facade assigns a numeric SessionID
// to the running process.
type SessionConfig struct {
	Strategy string `mapstructure:"strategy"` // "git-directory", "manual", or "hash"
	ManualID string `mapstructure:"manual_id"`
}

// DefaultConfig returns the configuration a freshly created store runs
// with when no config file is present.
func DefaultConfig() *Config {
	configDir := ConfigPath()

	return &Config{
		Store: StoreConfig{
			GraphPath:       filepath.Join(configDir, "graph.amem"),
			LogPath:         filepath.Join(configDir, "log.imem"),
			Dimension:       256,
			SaveInterval:    5 * time.Minute,
			MaintenanceTick: 1 * time.Hour,
		},
		Tiers: TiersConfig{
			WarmAfter:   24 * time.Hour,
			ColdAfter:   7 * 24 * time.Hour,
			FrozenAfter: 30 * 24 * time.Hour,
			ColdCodec:   "lz4",
			FrozenCodec: "zstd",
			FrozenLevel: 3,
		},
		Retrieval: RetrievalConfig{
			MaxConcurrentFanout: 5,
			TermWeight:          0.4,
			VectorWeight:        0.4,
			RecencyWeight:       0.2,
			DefaultTokenBudget:  4000,
			TokensPerChar:       0.25,
		},
		Embedding: EmbeddingConfig{
			Provider:  "noop",
			Dimension: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Session: SessionConfig{
			Strategy: "git-directory",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// none is found. Searches, in order: ./config.yaml, ~/.cogmem/config.yaml,
// /etc/cogmem/config.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath(ConfigPath())
	v.AddConfigPath("/etc/cogmem")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("store.graph_path", d.Store.GraphPath)
	v.SetDefault("store.log_path", d.Store.LogPath)
	v.SetDefault("store.dimension", d.Store.Dimension)
	v.SetDefault("store.save_interval", d.Store.SaveInterval.String())
	v.SetDefault("store.maintenance_tick", d.Store.MaintenanceTick.String())

	v.SetDefault("tiers.warm_after", d.Tiers.WarmAfter.String())
	v.SetDefault("tiers.cold_after", d.Tiers.ColdAfter.String())
	v.SetDefault("tiers.frozen_after", d.Tiers.FrozenAfter.String())
	v.SetDefault("tiers.cold_codec", d.Tiers.ColdCodec)
	v.SetDefault("tiers.frozen_codec", d.Tiers.FrozenCodec)
	v.SetDefault("tiers.frozen_level", d.Tiers.FrozenLevel)

	v.SetDefault("retrieval.max_concurrent_fanout", d.Retrieval.MaxConcurrentFanout)
	v.SetDefault("retrieval.term_weight", d.Retrieval.TermWeight)
	v.SetDefault("retrieval.vector_weight", d.Retrieval.VectorWeight)
	v.SetDefault("retrieval.recency_weight", d.Retrieval.RecencyWeight)
	v.SetDefault("retrieval.default_token_budget", d.Retrieval.DefaultTokenBudget)
	v.SetDefault("retrieval.tokens_per_char", d.Retrieval.TokensPerChar)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("session.strategy", d.Session.Strategy)
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Store.GraphPath == "" {
		return fmt.Errorf("store.graph_path is required")
	}
	if c.Store.LogPath == "" {
		return fmt.Errorf("store.log_path is required")
	}
	if c.Store.Dimension < 0 {
		return fmt.Errorf("store.dimension must be >= 0")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	validProviders := map[string]bool{"noop": true, "tfidf": true}
	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("embedding.provider must be one of: noop, tfidf")
	}

	validCodecs := map[string]bool{"lz4": true, "none": true}
	if !validCodecs[c.Tiers.ColdCodec] {
		return fmt.Errorf("tiers.cold_codec must be one of: lz4, none")
	}
	validFrozenCodecs := map[string]bool{"zstd": true, "none": true}
	if !validFrozenCodecs[c.Tiers.FrozenCodec] {
		return fmt.Errorf("tiers.frozen_codec must be one of: zstd, none")
	}

	if c.Session.Strategy != "git-directory" && c.Session.Strategy != "manual" && c.Session.Strategy != "hash" {
		return fmt.Errorf("session.strategy must be 'git-directory', 'manual', or 'hash'")
	}

	w := c.Retrieval.TermWeight + c.Retrieval.VectorWeight + c.Retrieval.RecencyWeight
	if w <= 0 {
		return fmt.Errorf("retrieval weights must sum to a positive value")
	}

	return nil
}

// EnsureConfigDir creates the directories holding the graph and log files.
func (c *Config) EnsureConfigDir() error {
	for _, p := range []string{filepath.Dir(c.Store.GraphPath), filepath.Dir(c.Store.LogPath)} {
		if err := os.MkdirAll(p, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return nil
}

// ConfigPath returns the path to the configuration directory.
func ConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".cogmem")
}
