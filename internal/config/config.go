// Package config loads shardsink configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full shardsink configuration.
type Config struct {
	Sink    SinkConfig    `yaml:"sink"`
	Format  FormatConfig  `yaml:"format"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
}

// SinkConfig names the output files.
type SinkConfig struct {
	BaseOutputFilename string `yaml:"base_output_filename"`
	Extension          string `yaml:"extension"`
	ShardNameTemplate  string `yaml:"shard_name_template"`
	TemporaryBase      string `yaml:"temporary_base"`
	KeepTemporaryFiles bool   `yaml:"keep_temporary_files"`
}

// FormatConfig selects the output format.
type FormatConfig struct {
	Type   string `yaml:"type"` // "text" | "gzip" | "parquet"
	Header string `yaml:"header"`
	Footer string `yaml:"footer"`
}

// BatchConfig tunes remote-store request batching.
type BatchConfig struct {
	MaxRequestsPerBatch int `yaml:"max_requests_per_batch"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Format:  FormatConfig{Type: "text"},
		Logging: LoggingConfig{Format: "text", Level: "info"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Sink.BaseOutputFilename = getenvDefault("SHARDSINK_OUTPUT", cfg.Sink.BaseOutputFilename)
	cfg.Sink.Extension = getenvDefault("SHARDSINK_EXTENSION", cfg.Sink.Extension)
	cfg.Sink.TemporaryBase = getenvDefault("SHARDSINK_TEMP_BASE", cfg.Sink.TemporaryBase)
	cfg.Format.Type = getenvDefault("SHARDSINK_FORMAT", cfg.Format.Type)
	cfg.Logging.Format = getenvDefault("SHARDSINK_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Level = getenvDefault("SHARDSINK_LOG_LEVEL", cfg.Logging.Level)

	if v := os.Getenv("SHARDSINK_MAX_REQUESTS_PER_BATCH"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse SHARDSINK_MAX_REQUESTS_PER_BATCH: %w", err)
		}
		cfg.Batch.MaxRequestsPerBatch = parsed
	}
	if os.Getenv("SHARDSINK_KEEP_TEMP_FILES") == "true" {
		cfg.Sink.KeepTemporaryFiles = true
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
