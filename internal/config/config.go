package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is reported in the default User-Agent
const Version = "0.1.0"

// EnvPrefix is the prefix for environment overrides, e.g. RESUMEFETCH_LOGGING_LEVEL
const EnvPrefix = "RESUMEFETCH"

// Config represents the entire application configuration
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DownloadConfig contains downloader settings
type DownloadConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	BufferSize int    `mapstructure:"buffer_size"`
	UserAgent  string `mapstructure:"user_agent"`
}

// ProgressConfig contains progress reporting settings
type ProgressConfig struct {
	LogInterval string `mapstructure:"log_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig contains history database settings
type DatabaseConfig struct {
	// Path of the sqlite history file. Empty disables history.
	Path string `mapstructure:"path"`
}

// Load loads configuration from the specified file path. An empty path or a
// missing file leaves the defaults and environment overrides in effect.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download.output_dir", ".")
	v.SetDefault("download.buffer_size", 32*1024)
	v.SetDefault("download.user_agent", "resumefetch/"+Version)
	v.SetDefault("progress.log_interval", "1s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("database.path", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Download.BufferSize <= 0 {
		return fmt.Errorf("download.buffer_size must be positive")
	}
	if c.Download.OutputDir == "" {
		return fmt.Errorf("download.output_dir is required")
	}

	if _, err := time.ParseDuration(c.Progress.LogInterval); err != nil {
		return fmt.Errorf("invalid progress.log_interval: %w", err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be positive when logging.file is set")
	}

	return nil
}

// GetLogInterval returns the progress log interval as time.Duration
func (c *ProgressConfig) GetLogInterval() time.Duration {
	d, _ := time.ParseDuration(c.LogInterval)
	if d <= 0 {
		return time.Second
	}
	return d
}

// HistoryEnabled reports whether a history database is configured
func (c *DatabaseConfig) HistoryEnabled() bool {
	return c.Path != ""
}
