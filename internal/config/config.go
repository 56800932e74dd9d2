// Package config holds runtime settings for the moodface server and CLI.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/dj-oyu/moodface/internal/logger"
)

// EnvPrefix namespaces environment overrides, e.g. MOODFACE_TARGET_FPS=15.
const EnvPrefix = "MOODFACE"

// Config defines the runtime configuration.
type Config struct {
	Addr              string        `mapstructure:"addr"`
	MetricsAddr       string        `mapstructure:"metrics_addr"` // Empty serves /metrics on Addr
	TargetFPS         int           `mapstructure:"target_fps"`
	JPEGQuality       int           `mapstructure:"jpeg_quality"`
	StabilizeFrames   int           `mapstructure:"stabilize_frames"`
	StatusInterval    time.Duration `mapstructure:"status_interval"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	MJPEGIdleInterval time.Duration `mapstructure:"mjpeg_idle_interval"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level"`
	LogColor          bool          `mapstructure:"log_color"`
	LogFile           string        `mapstructure:"log_file"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		TargetFPS:         30,
		JPEGQuality:       80,
		StabilizeFrames:   1,
		StatusInterval:    2 * time.Second,
		KeepaliveInterval: 30 * time.Second,
		MJPEGIdleInterval: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
	}
}

// Validate clamps out-of-range values back to their defaults and rejects
// settings that have no sensible fallback.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr must not be empty")
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = def.TargetFPS
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		c.JPEGQuality = def.JPEGQuality
	}
	if c.StabilizeFrames < 1 {
		c.StabilizeFrames = 1
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = def.StatusInterval
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = def.KeepaliveInterval
	}
	if c.MJPEGIdleInterval <= 0 {
		c.MJPEGIdleInterval = def.MJPEGIdleInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SetDefaults registers every key with v so env overrides and bound flags
// resolve even when no config file is present.
func SetDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("addr", def.Addr)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("target_fps", def.TargetFPS)
	v.SetDefault("jpeg_quality", def.JPEGQuality)
	v.SetDefault("stabilize_frames", def.StabilizeFrames)
	v.SetDefault("status_interval", def.StatusInterval)
	v.SetDefault("keepalive_interval", def.KeepaliveInterval)
	v.SetDefault("mjpeg_idle_interval", def.MJPEGIdleInterval)
	v.SetDefault("shutdown_timeout", def.ShutdownTimeout)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_color", def.LogColor)
	v.SetDefault("log_file", def.LogFile)
}

// Load resolves the configuration from, in increasing priority: defaults,
// the optional file at path (YAML, JSON or TOML by extension), MOODFACE_*
// environment variables, and any flags already bound to v.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return Config{}, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
