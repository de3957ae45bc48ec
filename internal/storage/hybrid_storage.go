package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zakazai/flatdb/internal/types"
)

// HybridStorage keeps a primary storage and a mirror (typically JSON files
// and Parquet snapshots). Writes go to the primary first and are then copied
// to the mirror; reads come from the primary and fall back to the mirror when
// the primary has lost a table.
type HybridStorage struct {
	// primary is authoritative: its errors are returned to the caller.
	primary types.Storage

	// mirror failures are logged and otherwise ignored.
	mirror types.Storage

	// syncTime records when the mirror was last fully synchronized.
	syncTime time.Time
}

// NewHybridStorage combines primary and mirror.
func NewHybridStorage(primary, mirror types.Storage) *HybridStorage {
	return &HybridStorage{primary: primary, mirror: mirror}
}

func (s *HybridStorage) ReadTable(database, table string) ([]byte, error) {
	data, err := s.primary.ReadTable(database, table)
	if err == nil || !errors.Is(err, types.ErrNotFound) {
		return data, err
	}
	data, mirrorErr := s.mirror.ReadTable(database, table)
	if mirrorErr != nil {
		return nil, err
	}
	slog.Warn("Table missing from primary storage, served from mirror", "database", database, "table", table)
	return data, nil
}

func (s *HybridStorage) WriteTable(database, table string, data []byte) error {
	if err := s.primary.WriteTable(database, table, data); err != nil {
		return err
	}
	if err := s.mirror.WriteTable(database, table, data); err != nil {
		slog.Warn("Failed to mirror new table", "database", database, "table", table, "err", err)
	}
	return nil
}

func (s *HybridStorage) EditTable(database, table string, data []byte) error {
	if err := s.primary.EditTable(database, table, data); err != nil {
		return err
	}
	if err := s.mirrorEdit(database, table, data); err != nil {
		slog.Warn("Failed to mirror table edit", "database", database, "table", table, "err", err)
	}
	return nil
}

// mirrorEdit edits the mirror copy, creating it if the mirror never saw the table.
func (s *HybridStorage) mirrorEdit(database, table string, data []byte) error {
	err := s.mirror.EditTable(database, table, data)
	if errors.Is(err, types.ErrNotFound) {
		return s.mirror.WriteTable(database, table, data)
	}
	return err
}

func (s *HybridStorage) ShowTables(database string) ([]string, error) {
	return s.primary.ShowTables(database)
}

// SyncNow copies every table of database from the primary to the mirror.
func (s *HybridStorage) SyncNow(database string) error {
	tables, err := s.primary.ShowTables(database)
	if err != nil {
		return fmt.Errorf("failed to list primary tables: %w", err)
	}
	for _, name := range tables {
		data, err := s.primary.ReadTable(database, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := s.mirrorEdit(database, name, data); err != nil {
			return fmt.Errorf("failed to mirror %s: %w", name, err)
		}
	}
	s.syncTime = time.Now()
	return nil
}

// GetLastSyncTime returns the time of the last synchronization
func (s *HybridStorage) GetLastSyncTime() time.Time {
	return s.syncTime
}

// Close closes both storages and returns the first error.
func (s *HybridStorage) Close() error {
	primaryErr := s.primary.Close()
	mirrorErr := s.mirror.Close()
	if primaryErr != nil {
		return primaryErr
	}
	return mirrorErr
}

// Primary returns the authoritative storage.
func (s *HybridStorage) Primary() types.Storage {
	return s.primary
}

// Mirror returns the secondary storage.
func (s *HybridStorage) Mirror() types.Storage {
	return s.mirror
}
