package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Server.OutputDir != DefaultServerConfig().OutputDir {
		t.Errorf("expected default output dir, got '%s'", config.Server.OutputDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config file was not written: %v", err)
	}
	var onDisk Config
	if err = json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("default config file is not valid JSON: %v", err)
	}
	if onDisk.Templates == nil || !onDisk.Templates.PermissiveFilters {
		t.Error("default config file is missing template defaults")
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server_config": {"log_level": "debug", "data_dir": "/srv/site"}, "filter_config": {"repair_fallback_markup": true}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Server.DataDir != "/srv/site" || config.Server.LogLevel != "debug" {
		t.Errorf("server config not loaded: %+v", config.Server)
	}
	// Fields absent from the file keep their defaults.
	if config.Server.OutputDir != DefaultServerConfig().OutputDir {
		t.Errorf("expected default output dir, got '%s'", config.Server.OutputDir)
	}
	if config.Templates == nil || config.Templates.MaxFallbackBindings != 64 {
		t.Error("missing template section should fall back to defaults")
	}
	if !config.Filters.RepairFallbackMarkup {
		t.Error("filter config not loaded")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for malformed config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}
