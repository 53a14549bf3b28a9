// Package config provides configuration loading for the migr8-smoke tool.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete migr8-smoke configuration.
type Config struct {
	// APIBaseURL is the HTTP base URL of the MIGR8 API (default: http://localhost:3000/api)
	APIBaseURL string `yaml:"api_base_url"`
	// WSURL is the WebSocket push-channel URL (default: ws://localhost:3000)
	WSURL string `yaml:"ws_url"`
	// ProjectPath is the filesystem root of the project submitted for analysis
	ProjectPath string `yaml:"project_path"`
	// PollInterval is the delay between analysis status polls (default: 5s)
	PollInterval time.Duration `yaml:"poll_interval"`
	// PollLimit caps the number of analysis status polls (default: 60)
	PollLimit int `yaml:"poll_limit"`
	// LogLevel is one of debug, info, warn, error (default: info)
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:   DefaultAPIBaseURL,
		WSURL:        DefaultWSURL,
		ProjectPath:  "",
		PollInterval: DefaultPollInterval,
		PollLimit:    DefaultPollLimit,
		LogLevel:     "info",
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("api_base_url %q is not a valid URL", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url must use http or https, got %q", u.Scheme)
	}
	if c.WSURL == "" {
		return fmt.Errorf("ws_url is required")
	}
	wu, err := url.Parse(c.WSURL)
	if err != nil || wu.Host == "" {
		return fmt.Errorf("ws_url %q is not a valid URL", c.WSURL)
	}
	if wu.Scheme != "ws" && wu.Scheme != "wss" {
		return fmt.Errorf("ws_url must use ws or wss, got %q", wu.Scheme)
	}
	if c.ProjectPath == "" {
		return fmt.Errorf("project_path is required (--project flag, %s, or config file)", EnvProjectPath)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.PollLimit <= 0 {
		return fmt.Errorf("poll_limit must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.WSURL != "" {
		c.WSURL = other.WSURL
	}
	if other.ProjectPath != "" {
		c.ProjectPath = other.ProjectPath
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.PollLimit != 0 {
		c.PollLimit = other.PollLimit
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
