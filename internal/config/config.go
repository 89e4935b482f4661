// Package config loads the runner configuration from a profiler.toml file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full runner configuration.
type Config struct {
	ReportPath string        `toml:"report_path"`
	Dataset    DatasetConfig `toml:"dataset"`
	Engine     EngineConfig  `toml:"engine"`
	History    HistoryConfig `toml:"history"`
	Modal      ModalConfig   `toml:"modal"`
}

// DatasetConfig describes the input table.
type DatasetConfig struct {
	Path      string `toml:"path"`
	Delimiter string `toml:"delimiter"`
	HasHeader bool   `toml:"has_header"`
}

// EngineConfig selects and configures the profiling engine.
type EngineConfig struct {
	// Type is "local" or "modal".
	Type   string   `toml:"type"`
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
}

// HistoryConfig controls run history recording. When CheckResults is set,
// a task whose identical run (same algorithm, parameters and dataset
// fingerprint) already succeeded is answered from the history instead of
// being dispatched to the engine again.
type HistoryConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	CheckResults bool   `toml:"check_results"`
}

// ModalConfig configures the modal engine. Ignored for other engine types.
type ModalConfig struct {
	AppName string   `toml:"app_name"`
	Image   string   `toml:"image"`
	Binary  string   `toml:"binary"`
	CPUs    string   `toml:"cpus"`
	Memory  string   `toml:"memory"`
	Regions []string `toml:"regions"`
	Verbose bool     `toml:"verbose"`
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		ReportPath: "report.json",
		Dataset: DatasetConfig{
			Delimiter: ",",
			HasHeader: true,
		},
		Engine: EngineConfig{
			Type: "local",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".dataprof/history.json",
		},
		Modal: ModalConfig{
			CPUs:   "1",
			Memory: "2G",
		},
	}
}

// Load reads and validates a profiler.toml file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Dataset.Path == "" {
		return cfg, fmt.Errorf("dataset.path is required")
	}
	if cfg.Dataset.Delimiter == "" {
		cfg.Dataset.Delimiter = ","
	}

	switch cfg.Engine.Type {
	case "local":
		if cfg.Engine.Binary == "" {
			return cfg, fmt.Errorf("engine.binary is required for the local engine")
		}
	case "modal":
		if cfg.Modal.Image == "" {
			return cfg, fmt.Errorf("modal.image is required for the modal engine")
		}
		if cfg.Modal.Binary == "" {
			return cfg, fmt.Errorf("modal.binary is required for the modal engine")
		}
	default:
		return cfg, fmt.Errorf("unsupported engine type: %s", cfg.Engine.Type)
	}

	return cfg, nil
}
