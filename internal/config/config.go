// Package config loads fileman settings from an optional YAML or TOML
// file, then applies FILEMAN_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const (
	StoreLocal = "local"
	StoreS3    = "s3"

	envPrefix = "FILEMAN"
)

// Config holds all application configuration.
type Config struct {
	Store    string         `yaml:"store" toml:"store"`
	Root     string         `yaml:"root" toml:"root"`
	S3       S3Config       `yaml:"s3" toml:"s3"`
	Progress ProgressConfig `yaml:"progress" toml:"progress"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// S3Config selects the bucket and how objects are stored in it.
type S3Config struct {
	Profile        string `yaml:"profile" toml:"profile"`
	Bucket         string `yaml:"bucket" toml:"bucket"`
	Prefix         string `yaml:"prefix" toml:"prefix"`
	Compress       bool   `yaml:"compress" toml:"compress"`
	Encrypt        bool   `yaml:"encrypt" toml:"encrypt"`
	IdentitiesFile string `yaml:"identities_file" toml:"identities_file" split_words:"true"`
	SecretsFile    string `yaml:"secrets_file" toml:"secrets_file" split_words:"true"`
}

// ProgressConfig tunes the copy loop and the progress throttle.
type ProgressConfig struct {
	IntervalMS int `yaml:"interval_ms" toml:"interval_ms" split_words:"true"`
	ChunkSize  int `yaml:"chunk_size" toml:"chunk_size" split_words:"true"`
}

// Interval is IntervalMS as a duration.
func (pc ProgressConfig) Interval() time.Duration {
	return time.Duration(pc.IntervalMS) * time.Millisecond
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Store: StoreLocal,
		Root:  ".",
		S3: S3Config{
			Profile:        "default",
			IdentitiesFile: "default",
			SecretsFile:    "default",
		},
		Progress: ProgressConfig{
			IntervalMS: 100,
			ChunkSize:  8 * 1024,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads path, if given, over the defaults, then applies the
// environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, errors.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yml", ".yaml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return &ErrInvalidConfig{msg: fmt.Sprintf("unknown config format: %s", path)}
	}
	if err != nil {
		return errors.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) Validate() error {
	switch cfg.Store {
	case StoreLocal:
	case StoreS3:
		if cfg.S3.Bucket == "" {
			return &ErrInvalidConfig{msg: "s3 store needs a bucket"}
		}
	default:
		return &ErrInvalidConfig{msg: fmt.Sprintf("unknown store: %q", cfg.Store)}
	}

	if cfg.Progress.ChunkSize <= 0 {
		return &ErrInvalidConfig{msg: fmt.Sprintf("chunk size must be positive: %d", cfg.Progress.ChunkSize)}
	}
	if cfg.Progress.IntervalMS <= 0 {
		return &ErrInvalidConfig{msg: fmt.Sprintf("progress interval must be positive: %d", cfg.Progress.IntervalMS)}
	}
	return nil
}

type ErrInvalidConfig struct {
	msg string
}

func (e *ErrInvalidConfig) Error() string {
	return e.msg
}
