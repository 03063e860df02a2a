// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitchradar/radar-cli/internal/ingest"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Merge     MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for opportunity scoring.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds Notion export credentials.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
	RatePerSec int    `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// SourcesConfig lists the opportunity feeds plus field mapping overrides.
type SourcesConfig struct {
	Feeds []ingest.Source `yaml:"feeds" mapstructure:"feeds"`
	// MappingsPath points to an optional YAML file overriding the built-in
	// source field mappings.
	MappingsPath string `yaml:"mappings_path" mapstructure:"mappings_path"`
}

// IngestConfig configures feed fetching.
type IngestConfig struct {
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int `yaml:"max_retries" mapstructure:"max_retries"`
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// MergeConfig bounds the stored collections.
type MergeConfig struct {
	PerSourceCap int `yaml:"per_source_cap" mapstructure:"per_source_cap"`
	AggregateCap int `yaml:"aggregate_cap" mapstructure:"aggregate_cap"`
}

// CacheConfig configures the analysis similarity cache.
type CacheConfig struct {
	MaxSize             int     `yaml:"max_size" mapstructure:"max_size"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "radar.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("notion.rate_per_sec", 3)
	v.SetDefault("ingest.timeout_secs", 30)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.max_concurrent", 3)
	v.SetDefault("merge.per_source_cap", 100)
	v.SetDefault("merge.aggregate_cap", 200)
	v.SetDefault("cache.max_size", 200)
	v.SetDefault("cache.similarity_threshold", 0.85)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
