package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config,
// defaults. Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Merge global config if exists
	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	// Merge project config if exists (highest precedence)
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: $XDG_CONFIG_HOME/hpcadm/config.json
// Project: hpcadm.json (relative to cwd)
func LoadDefault() (*Config, error) {
	globalPath := filepath.Join(xdg.ConfigHome, "hpcadm", "config.json")
	projectPath := "hpcadm.json"

	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *Config, path string) error {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	// Parse JSON
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	merge(base, &loaded)
	return nil
}

// merge overlays non-zero fields from over onto base.
func merge(base, over *Config) {
	if over.Gateway.BaseURL != "" {
		base.Gateway.BaseURL = over.Gateway.BaseURL
	}
	if over.Gateway.TokenPath != "" {
		base.Gateway.TokenPath = over.Gateway.TokenPath
	}
	if over.Gateway.TimeoutSeconds != 0 {
		base.Gateway.TimeoutSeconds = over.Gateway.TimeoutSeconds
	}
	if over.Wait.TimeoutSeconds != 0 {
		base.Wait.TimeoutSeconds = over.Wait.TimeoutSeconds
	}
	if over.Wait.PollIntervalSeconds != 0 {
		base.Wait.PollIntervalSeconds = over.Wait.PollIntervalSeconds
	}
	if over.Wait.Retries != 0 {
		base.Wait.Retries = over.Wait.Retries
	}
	if over.Journal.Path != "" {
		base.Journal.Path = over.Journal.Path
	}
	if over.Workspace.Root != "" {
		base.Workspace.Root = over.Workspace.Root
	}
	if over.Log.Level != "" {
		base.Log.Level = over.Log.Level
	}
	if over.Log.Format != "" {
		base.Log.Format = over.Log.Format
	}
}
