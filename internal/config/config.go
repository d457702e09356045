package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/loykin/shellact/internal/action"
	"github.com/loykin/shellact/internal/logger"
)

// DefaultUID selects /var/run/user/1000 when nothing else is configured.
const DefaultUID = 1000

// Config is the top-level TOML structure shared by the CLI and the serve
// daemon. Everything is optional; zero values fall back to the bare harness
// behavior (null-device output, no history, no metrics).
type Config struct {
	UID     int            `toml:"uid" mapstructure:"uid"`
	RunDir  string         `toml:"run_dir" mapstructure:"run_dir"`
	Log     *LogConfig     `toml:"log" mapstructure:"log"`
	History *HistoryConfig `toml:"history" mapstructure:"history"`
	Server  *ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics *MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	Stdout     string `toml:"stdout" mapstructure:"stdout"`
	Stderr     string `toml:"stderr" mapstructure:"stderr"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{UID: DefaultUID}
}

// Load reads a TOML config file. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.UID < 0 {
		return nil, fmt.Errorf("config %s: uid must not be negative", path)
	}
	return cfg, nil
}

// RuntimeDir resolves the directory holding status files: the explicit
// run_dir when set, otherwise the per-user default derived from uid.
func (c *Config) RuntimeDir() string {
	if c.RunDir != "" {
		return c.RunDir
	}
	return action.DefaultDir(c.UID)
}

// LoggerConfig converts the [log] section into the runner's capture config.
func (c *Config) LoggerConfig() logger.Config {
	if c.Log == nil {
		return logger.Config{}
	}
	return logger.Config{
		Dir:        c.Log.Dir,
		StdoutPath: c.Log.Stdout,
		StderrPath: c.Log.Stderr,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// HistoryDSN returns the configured audit sink DSN, empty when disabled.
func (c *Config) HistoryDSN() string {
	if c.History == nil {
		return ""
	}
	return c.History.DSN
}
