package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProvidersConfig holds upstream catalog credentials and tuning.
// Credentials set here (or via environment) take precedence over any
// values stored in the settings table.
type ProvidersConfig struct {
	SpotifyClientID     string `yaml:"spotify_client_id"`
	SpotifyClientSecret string `yaml:"spotify_client_secret"`
	DiscogsToken        string `yaml:"discogs_token"`
	DiscogsWebRoot      string `yaml:"discogs_web_root"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "/data/resonate.db",
		},
		Providers: ProvidersConfig{
			DiscogsWebRoot: "https://www.discogs.com",
			TimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("RS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("RS_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("RS_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("RS_SPOTIFY_CLIENT_ID"); v != "" {
		c.Providers.SpotifyClientID = v
	}
	if v := os.Getenv("RS_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Providers.SpotifyClientSecret = v
	}
	if v := os.Getenv("RS_DISCOGS_TOKEN"); v != "" {
		c.Providers.DiscogsToken = v
	}
	if v := os.Getenv("RS_DISCOGS_WEB_ROOT"); v != "" {
		c.Providers.DiscogsWebRoot = v
	}
	if v := os.Getenv("RS_PROVIDER_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Providers.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("RS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RS_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Providers.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid provider timeout: %ds", c.Providers.TimeoutSeconds)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	c.Providers.DiscogsWebRoot = strings.TrimRight(c.Providers.DiscogsWebRoot, "/")
	return nil
}
