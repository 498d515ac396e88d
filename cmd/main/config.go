package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/bananafilter/pkg/banana"
	"github.com/CTAG07/bananafilter/pkg/templating"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the settings for the site builder itself.
type ServerConfig struct {
	LogLevel          string `json:"log_level"`
	DataDir           string `json:"data_dir"`
	OutputDir         string `json:"output_dir"`
	RecordUsage       bool   `json:"record_usage"`
	UsageDatabasePath string `json:"usage_database_path"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
	Filters   *banana.Options            `json:"filter_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		LogLevel:          "info",
		DataDir:           "./data",
		OutputDir:         "./_site",
		RecordUsage:       true,
		UsageDatabasePath: "./data/bananafilter_usage.db",
	}
}

// DefaultConfig creates a full configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Templates: templating.DefaultConfig(),
		Filters:   &banana.Options{},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	// Initialize with default configurations
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the builder can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the JSON from the file into the config struct.
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Sections missing from the file fall back to their defaults.
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Templates == nil {
		config.Templates = templating.DefaultConfig()
	}
	if config.Filters == nil {
		config.Filters = &banana.Options{}
	}
	return config, nil
}

// parseLogLevel maps a config log level onto a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
