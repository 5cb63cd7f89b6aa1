// Package config loads the hearth.json project file used by the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FileName is the name of the configuration file.
	FileName = "hearth.json"

	// DefaultHost is the default listen host.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the default listen port.
	DefaultPort = 80

	// DefaultRefreshMillis is the default blocking-loop refresh interval
	// in milliseconds.
	DefaultRefreshMillis = 1
)

// Config represents the complete hearth.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Host is the listen host.
	Host string `json:"host,omitempty"`

	// Port is the listen port.
	Port int `json:"port,omitempty"`

	// RefreshMillis is the blocking-loop refresh interval in milliseconds.
	RefreshMillis int `json:"refresh_millis,omitempty"`

	// TriggerDir is the directory scanned for trigger files.
	TriggerDir string `json:"trigger_dir,omitempty"`

	// Metrics exposes the Prometheus endpoint on /metrics when true.
	Metrics bool `json:"metrics,omitempty"`

	// Daemon runs the server in daemonized mode.
	Daemon bool `json:"daemon,omitempty"`
}

// Default returns a Config with the framework defaults.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		RefreshMillis: DefaultRefreshMillis,
	}
}

// Load reads hearth.json from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: %s: port %d out of range", path, cfg.Port)
	}
	if cfg.RefreshMillis <= 0 {
		return nil, fmt.Errorf("config: %s: refresh_millis must be positive", path)
	}
	return cfg, nil
}

// Save writes the config as hearth.json into dir.
func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether dir contains a hearth.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
