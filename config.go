package flatdb

import (
	"fmt"
	"os"

	"github.com/zakazai/flatdb/internal/storage"
	"github.com/zakazai/flatdb/internal/types"
	"gopkg.in/yaml.v3"
)

// Config selects where and how tables are stored.
type Config struct {
	// DataDir is the root directory of every database. Unused by memory
	// storage.
	DataDir string `yaml:"data_dir"`
	// Storage is one of memory, json, parquet or hybrid.
	Storage string `yaml:"storage"`
	// Versioned commits every write to a git repository in DataDir. JSON
	// storage only.
	Versioned bool   `yaml:"versioned"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig stores JSON files under ./data.
func DefaultConfig() Config {
	return Config{
		DataDir:  "data",
		Storage:  string(storage.JSONStorageType),
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file. Keys missing from the file keep
// their DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // User-specified config path
	if err != nil {
		return c, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	switch storage.StorageType(c.Storage) {
	case storage.InMemoryStorageType:
	case storage.JSONStorageType, storage.ParquetStorageType, storage.HybridStorageType:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for %s storage", c.Storage)
		}
	default:
		return fmt.Errorf("unsupported storage %q", c.Storage)
	}
	if c.Versioned && c.Storage != string(storage.JSONStorageType) {
		return fmt.Errorf("versioned requires json storage, got %s", c.Storage)
	}
	if _, err := types.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
