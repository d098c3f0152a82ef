// Package config provides configuration loading and validation for the
// codec engine, using Viper for file/env/default layering.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultQueueCapacity  = 64
	defaultDrainTimeout   = 5 * time.Second
	defaultProbeTimeout   = 30 * time.Second
	defaultMonitorPeriod  = time.Second
)

// Config holds all configuration for the codec engine.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	FFmpeg  FFmpegConfig  `mapstructure:"ffmpeg"`
	Engine  EngineConfig  `mapstructure:"engine"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath      string   `mapstructure:"binary_path"`      // Path to ffmpeg binary (empty = auto-detect)
	ProbePath       string   `mapstructure:"probe_path"`       // Path to ffprobe binary (empty = auto-detect)
	ProbeTimeout    Duration `mapstructure:"probe_timeout"`
	HWAccelPriority []string `mapstructure:"hwaccel_priority"` // Priority order: vaapi, nvenc, qsv, amf
}

// EngineConfig holds per-codec-instance queue/worker settings. They are
// loaded and validated here only: internal/engine and the backends do not
// read them. The engine's admission queue is unbounded, Engine.Close waits
// a fixed 3 seconds for the worker, and the ffmpegproc process monitor
// samples once per second.
type EngineConfig struct {
	// QueueCapacity is the configured pending chunk/frame limit.
	QueueCapacity int `mapstructure:"queue_capacity"`
	// DrainTimeout is the configured wait for the worker on Close.
	DrainTimeout Duration `mapstructure:"drain_timeout"`
	// MonitorInterval is the configured backend process stats period.
	MonitorInterval Duration `mapstructure:"monitor_interval"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CODECENGINE_ and use underscores
// for nesting. Example: CODECENGINE_FFMPEG_BINARY_PATH=/usr/bin/ffmpeg.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/codecengine")
		v.AddConfigPath("$HOME/.codecengine")
	}

	v.SetEnvPrefix("CODECENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
	v.SetDefault("ffmpeg.probe_timeout", defaultProbeTimeout.String())
	v.SetDefault("ffmpeg.hwaccel_priority", []string{"vaapi", "nvenc", "qsv", "amf"})

	// Engine defaults
	v.SetDefault("engine.queue_capacity", defaultQueueCapacity)
	v.SetDefault("engine.drain_timeout", defaultDrainTimeout.String())
	v.SetDefault("engine.monitor_interval", defaultMonitorPeriod.String())
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Engine.QueueCapacity < 1 {
		return fmt.Errorf("engine.queue_capacity must be at least 1")
	}

	return nil
}
