// Package config provides JSON-based tool configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"pcb-inspector/internal/component"
)

const configFile = "config.json"

// Nexar holds the parts database API credentials.
type Nexar struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Config stores the detection and lookup settings.
type Config struct {
	LargeModelPath string           `json:"large_model_path"`
	SmallModelPath string           `json:"small_model_path"`
	Threads        int              `json:"threads"`
	Windows        int              `json:"windows"` // Tile grid dimension for windowed detection
	IgnoreTypes    []component.Type `json:"ignore_types,omitempty"`
	LookupEnabled  bool             `json:"lookup_enabled"`
	Nexar          Nexar            `json:"nexar"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LargeModelPath: "lib/large_items_obb.tflite",
		SmallModelPath: "lib/small_items_obb.tflite",
		Threads:        runtime.NumCPU(),
		Windows:        2,
		LookupEnabled:  true,
	}
}

// DefaultPath returns ~/.config/pcb-inspector/config.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "pcb-inspector", configFile)
}

// Load reads the configuration from the given path. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to disk, creating the directory when
// needed.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
