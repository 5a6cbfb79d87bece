// Package config loads imbui settings with Viper from a YAML file,
// IMBUI_ environment variables and command-line flags.
//
// The configuration covers the preview server, scene rendering, the scene
// file watcher and logging. Missing values fall back to defaults; the result
// is validated before use.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/internal/logging"
)

type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Preview PreviewConfig `yaml:"preview" mapstructure:"preview"`
	Render  RenderConfig  `yaml:"render" mapstructure:"render"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type PreviewConfig struct {
	// Interval is the delay between frames when a scene is played back.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Loop     bool          `yaml:"loop" mapstructure:"loop"`
	Title    string        `yaml:"title" mapstructure:"title"`
}

type RenderConfig struct {
	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`
	Stats  bool   `yaml:"stats" mapstructure:"stats"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default values.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 7331
	DefaultInterval = time.Second
	DefaultDebounce = 100 * time.Millisecond
)

// Load builds a Config from the global viper state.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, imbuierrors.NewConfigError(imbuierrors.ErrCodeConfigInvalid, err.Error())
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"localhost:*", "127.0.0.1:*"}
	}

	if config.Preview.Interval == 0 {
		config.Preview.Interval = DefaultInterval
	}
	if !viper.IsSet("preview.loop") {
		config.Preview.Loop = true
	}
	if config.Preview.Title == "" {
		config.Preview.Title = "imbui preview"
	}

	if config.Render.Format == "" {
		config.Render.Format = "text"
	}

	if !viper.IsSet("watch.enabled") {
		config.Watch.Enabled = true
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}

	if config.Log.Level == "" {
		config.Log.Level = "warn"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{Level: level, Format: c.Log.Format}), nil
}

// Addr returns the preview server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if config.Preview.Interval < 0 {
		return invalid("preview.interval must not be negative")
	}
	switch config.Render.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("render.format %q is not text or json", config.Render.Format))
	}
	if config.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative")
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("log.format %q is not text or json", config.Log.Format))
	}
	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// 0 asks the system for a free port.
	if config.Port < 0 || config.Port > 65535 {
		return invalid(fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}
	if strings.ContainsAny(config.Host, ";&|$`()<>\"'\\ ") {
		return invalid(fmt.Sprintf("host %q contains invalid characters", config.Host))
	}
	return nil
}

func invalid(msg string) error {
	return imbuierrors.NewConfigError(imbuierrors.ErrCodeConfigInvalid, msg)
}
