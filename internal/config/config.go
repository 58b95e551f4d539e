// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Store struct {
		// Directory name of the store inside a workspace root.
		Dir string `json:"dir"`
	} `json:"store"`

	Cache struct {
		// Number of decompressed blobs kept in memory.
		Size int `json:"size"`
	} `json:"cache"`

	Compression struct {
		// Minimum blob size in bytes before zstd kicks in.
		MinSize int `json:"min_size"`
		// zstd level, 1=fastest 3=best.
		Level int `json:"level"`
	} `json:"compression"`

	Walker struct {
		// Concurrent content fetches during classification.
		Workers int `json:"workers"`
	} `json:"walker"`

	LogLevel string `json:"log_level"` // debug, info, warn, error
}

func Default() *Config {
	var c Config
	c.Store.Dir = ".treediff"
	c.Cache.Size = 512
	c.Compression.MinSize = 1024
	c.Compression.Level = 2
	c.Walker.Workers = 4
	c.LogLevel = "info"
	return &c
}

func getConfigPath() string {
	env := os.Getenv("TREEDIFF_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads the config at path, falling back to defaults for the zero values.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if config.Cache.Size <= 0 {
		config.Cache.Size = Default().Cache.Size
	}
	if config.Walker.Workers <= 0 {
		config.Walker.Workers = Default().Walker.Workers
	}

	return config, nil
}
