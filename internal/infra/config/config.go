// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Data         DataConfig         `yaml:"data"`
	Audio        AudioConfig        `yaml:"audio"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Notification NotificationConfig `yaml:"notification"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string `yaml:"addr" default:":8080"`
	Token string `yaml:"token"` // Optional; when set, mutating calls must carry it
}

// DataConfig holds the paths of the data tables. Paths ending in .zst are
// read through a zstd decoder.
type DataConfig struct {
	Segments string `yaml:"segments" validate:"required"`
	Audio    string `yaml:"audio" validate:"required"`
	Glyphs   string `yaml:"glyphs"`
	Words    string `yaml:"words"`
}

// AudioConfig represents audio source configuration.
type AudioConfig struct {
	ResolveTimeoutMs int            `yaml:"resolve_timeout_ms" default:"4000" validate:"gte=100,lte=60000"`
	TickIntervalMs   int            `yaml:"tick_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	RemoteTimeoutMs  int            `yaml:"remote_timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	LocalRoot        string         `yaml:"local_root"`
	Sources          []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig represents a single audio source locator.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=local remote"`
	Settings map[string]any `yaml:"settings"`
}

// PlaybackConfig represents playback configuration.
type PlaybackConfig struct {
	DefaultCollection int `yaml:"default_collection" default:"1" validate:"gte=1"`
}

// NotificationConfig represents notification configuration.
type NotificationConfig struct {
	MaxPositionUpdatesPerSec float64 `yaml:"max_position_updates_per_sec" default:"4" validate:"gt=0,lte=100"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"` // Empty picks by output
	File   string `yaml:"file"`                                           // Empty logs to stdout
}

// envOverrides lists the values that may come from the environment.
type envOverrides struct {
	Addr         string `env:"VERSESYNC_ADDR"`
	ControlToken string `env:"VERSESYNC_CONTROL_TOKEN"`
	AudioRoot    string `env:"VERSESYNC_AUDIO_ROOT"`
	LogLevel     string `env:"VERSESYNC_LOG_LEVEL"`
}

// DefaultSources returns the locator order used when none is configured:
// the local file first, then the remote URL from the collection metadata.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Type: "local"},
		{Type: "remote"},
	}
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if len(cfg.Audio.Sources) == 0 {
		cfg.Audio.Sources = DefaultSources()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if o.Addr != "" {
		c.Server.Addr = o.Addr
	}
	if o.ControlToken != "" {
		c.Server.Token = o.ControlToken
	}
	if o.AudioRoot != "" {
		c.Audio.LocalRoot = o.AudioRoot
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// ResolveTimeout returns the per-locator source resolution timeout.
func (a AudioConfig) ResolveTimeout() time.Duration {
	return time.Duration(a.ResolveTimeoutMs) * time.Millisecond
}

// TickInterval returns the interval between stream position updates.
func (a AudioConfig) TickInterval() time.Duration {
	return time.Duration(a.TickIntervalMs) * time.Millisecond
}

// RemoteTimeout returns the HTTP timeout for probing remote sources.
func (a AudioConfig) RemoteTimeout() time.Duration {
	return time.Duration(a.RemoteTimeoutMs) * time.Millisecond
}
