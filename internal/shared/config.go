package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogLevel string       `toml:"log_level"`
	App      AppConfig    `toml:"app"`
	Deezer   DeezerConfig `toml:"deezer"`
	Server   ServerConfig `toml:"server"`
	Limits   LimitsConfig `toml:"limits"`
	Store    StoreConfig  `toml:"store"`
}

// AppConfig controls what the reconciler maintains.
type AppConfig struct {
	PlaylistName string `toml:"playlist_name"`
	LookbackDays int    `toml:"lookback_days"`
}

// DeezerConfig contains Deezer application credentials.
//
// Both fields can be overridden by the DEEZER_APP_ID and
// DEEZER_SECRET_TOKEN environment variables, so CI secrets never need to
// live in the file.
type DeezerConfig struct {
	AppID  string `toml:"app_id"`
	Secret string `toml:"secret"`
}

// ServerConfig contains the enrollment callback listener settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	CallbackPath string `toml:"callback_path"`
}

// Addr returns the listen address for the callback server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedirectURI returns the OAuth redirect target registered with the service.
func (s ServerConfig) RedirectURI() string {
	return fmt.Sprintf("http://%s:%d%s", s.Host, s.Port, s.CallbackPath)
}

// LimitsConfig bounds outbound traffic to the service.
type LimitsConfig struct {
	MaxRequests         int `toml:"max_requests"`
	PeriodSeconds       int `toml:"period_seconds"`
	RetryAttempts       int `toml:"retry_attempts"`
	RetryBackoffSeconds int `toml:"retry_backoff_seconds"`
}

// Period returns the sliding-window span.
func (l LimitsConfig) Period() time.Duration {
	return time.Duration(l.PeriodSeconds) * time.Second
}

// RetryBackoff returns the fixed sleep between retry attempts.
func (l LimitsConfig) RetryBackoff() time.Duration {
	return time.Duration(l.RetryBackoffSeconds) * time.Second
}

// StoreConfig contains persistence settings: the dotenv credential file
// and the run-history database.
type StoreConfig struct {
	EnvPath      string `toml:"env_path"`
	DatabasePath string `toml:"database_path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays environment variables onto file-sourced credentials.
func (c *Config) applyEnv() {
	if v := os.Getenv("DEEZER_APP_ID"); v != "" {
		c.Deezer.AppID = v
	}
	if v := os.Getenv("DEEZER_SECRET_TOKEN"); v != "" {
		c.Deezer.Secret = v
	}
}
