package storage

import (
	"fmt"
	"path/filepath"

	"github.com/zakazai/flatdb/internal/types"
)

type StorageType string

const (
	InMemoryStorageType StorageType = "memory"
	JSONStorageType     StorageType = "json"
	ParquetStorageType  StorageType = "parquet"
	HybridStorageType   StorageType = "hybrid"
)

type StorageConfig struct {
	Type StorageType
	Dir  string // Root data directory; unused for memory storage
	// Versioned commits every write to a git repository in Dir. Only JSON
	// storage supports it.
	Versioned bool
}

// NewStorage creates a new storage instance based on the provided configuration
func NewStorage(config StorageConfig) (types.Storage, error) {
	if config.Versioned && config.Type != JSONStorageType {
		return nil, fmt.Errorf("versioning requires %s storage, got %s", JSONStorageType, config.Type)
	}
	switch config.Type {
	case InMemoryStorageType:
		return NewInMemoryStorage(), nil
	case JSONStorageType:
		if config.Dir == "" {
			return nil, fmt.Errorf("data directory is required for JSON storage")
		}
		if config.Versioned {
			return NewGitStorage(config.Dir)
		}
		return NewJSONStorage(config.Dir)
	case ParquetStorageType:
		if config.Dir == "" {
			return nil, fmt.Errorf("data directory is required for Parquet storage")
		}
		return NewParquetStorage(config.Dir)
	case HybridStorageType:
		if config.Dir == "" {
			return nil, fmt.Errorf("data directory is required for hybrid storage")
		}
		primary, err := NewJSONStorage(config.Dir)
		if err != nil {
			return nil, err
		}
		mirror, err := NewParquetStorage(filepath.Join(config.Dir, "parquet"))
		if err != nil {
			return nil, err
		}
		return NewHybridStorage(primary, mirror), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
