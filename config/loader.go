package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// ProjectConfigFile is the config file picked up from the working directory
// when no explicit --config path is given.
const ProjectConfigFile = "migr8-smoke.yaml"

// Environment variables recognized by Load.
const (
	EnvAPIBaseURL  = "MIGR8_API_URL"
	EnvWSURL       = "MIGR8_WS_URL"
	EnvProjectPath = "MIGR8_PROJECT_PATH"
	EnvLogLevel    = "MIGR8_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load resolves configuration with layered precedence:
// 1. Defaults
// 2. .env file in the working directory
// 3. YAML config file (path when given, else migr8-smoke.yaml if present)
// 4. MIGR8_* environment variables
// Flag overrides are the caller's layer; apply them to the returned Config,
// then call Validate.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	// .env is optional, used for local development.
	if err := godotenv.Load(); err == nil {
		l.logger.Debug("Loaded .env file")
	}

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config.Merge(fileConfig)
	} else if _, err := os.Stat(ProjectConfigFile); err == nil {
		fileConfig, err := LoadFromFile(ProjectConfigFile)
		if err != nil {
			l.logger.Warn("Failed to load config file", slog.String("path", ProjectConfigFile), slog.String("error", err.Error()))
		} else {
			l.logger.Debug("Loaded config file", slog.String("path", ProjectConfigFile))
			config.Merge(fileConfig)
		}
	}

	applyEnv(config)

	return config, nil
}

// applyEnv overlays MIGR8_* environment variables onto the config.
func applyEnv(c *Config) {
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(EnvWSURL); v != "" {
		c.WSURL = v
	}
	if v := os.Getenv(EnvProjectPath); v != "" {
		c.ProjectPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}
