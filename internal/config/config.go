// Package config loads control room settings from defaults, an optional YAML
// file, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/control-room/internal/scenario"
)

// Config contains all control room settings.
type Config struct {
	Backend  BackendConfig  `json:"backend" yaml:"backend"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Playback PlaybackConfig `json:"playback" yaml:"playback"`
	Session  SessionConfig  `json:"session" yaml:"session"`
}

// BackendConfig points at the simulation service.
type BackendConfig struct {
	// URL is the API root, e.g. http://localhost:5001/api.
	URL string `json:"url" yaml:"url"`

	// Timeout bounds each request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// ReadyTimeout is how long serve waits for the service at startup.
	// Zero skips the wait.
	ReadyTimeout time.Duration `json:"ready_timeout" yaml:"ready_timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `json:"port" yaml:"port"`

	// CORSOrigins are allowed in addition to the localhost dev origins.
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	// BriefRate is the per-IP brief request budget per minute.
	BriefRate int `json:"brief_rate" yaml:"brief_rate"`
}

// LoggingConfig sets log verbosity: "info" (default), "debug", or "trace".
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// JournalConfig locates the event journal. ":memory:" keeps it in process.
type JournalConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// PlaybackConfig sets the auto-advance interval.
type PlaybackConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// SessionConfig holds session defaults.
type SessionConfig struct {
	Perspective string `json:"perspective" yaml:"perspective"`

	// Notifications is how many notifications the session keeps.
	Notifications int `json:"notifications" yaml:"notifications"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:          "http://localhost:5001/api",
			Timeout:      30 * time.Second,
			ReadyTimeout: 0,
		},
		Server: ServerConfig{
			Port:      8080,
			BriefRate: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			DSN: ":memory:",
		},
		Playback: PlaybackConfig{
			Interval: 2 * time.Second,
		},
		Session: SessionConfig{
			Perspective:   string(scenario.DefaultPerspective),
			Notifications: 50,
		},
	}
}

// Load returns defaults overlaid with path (when non-empty) and then the
// environment.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url must be set")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout must be non-negative, got %v", c.Backend.Timeout)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Playback.Interval <= 0 {
		return fmt.Errorf("playback interval must be positive, got %v", c.Playback.Interval)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Session.Perspective != "" {
		if _, err := scenario.ParsePerspective(c.Session.Perspective); err != nil {
			return err
		}
	}
	return nil
}

// Addr is the listen address for the HTTP API.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CONTROLROOM_BACKEND_URL"); v != "" {
		config.Backend.URL = v
	}
	if v := os.Getenv("CONTROLROOM_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Backend.Timeout = d
		}
	}
	if v := os.Getenv("CONTROLROOM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Server.Port = n
		}
	}
	if v := os.Getenv("CONTROLROOM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CONTROLROOM_JOURNAL_DSN"); v != "" {
		config.Journal.DSN = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.Server.CORSOrigins = append(config.Server.CORSOrigins, o)
			}
		}
	}
}
