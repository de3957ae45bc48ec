package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zakazai/flatdb/internal/types"
)

// InMemoryStorage implements types.Storage with byte slices kept in a map.
type InMemoryStorage struct {
	mu        sync.RWMutex
	databases map[string]map[string][]byte
}

// NewInMemoryStorage creates a new in-memory storage
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		databases: make(map[string]map[string][]byte),
	}
}

func (s *InMemoryStorage) ReadTable(database, table string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.databases[database][table]
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", types.ErrNotFound, database, table)
	}
	return clone(data), nil
}

func (s *InMemoryStorage) WriteTable(database, table string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables, ok := s.databases[database]
	if !ok {
		tables = make(map[string][]byte)
		s.databases[database] = tables
	}
	if _, exists := tables[table]; exists {
		return fmt.Errorf("%w: %s/%s", types.ErrTableExists, database, table)
	}
	tables[table] = clone(data)
	return nil
}

func (s *InMemoryStorage) EditTable(database, table string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.databases[database][table]; !exists {
		return fmt.Errorf("%w: %s/%s", types.ErrNotFound, database, table)
	}
	s.databases[database][table] = clone(data)
	return nil
}

func (s *InMemoryStorage) ShowTables(database string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make([]string, 0, len(s.databases[database]))
	for name := range s.databases[database] {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *InMemoryStorage) Close() error {
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// JSONStorage implements types.Storage with one JSON file per table, laid out
// as <dir>/<database>/<table>.json.
type JSONStorage struct {
	dir string
	mu  sync.Mutex
}

const jsonExt = ".json"

// NewJSONStorage creates a new JSON file storage rooted at dir.
func NewJSONStorage(dir string) (*JSONStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONStorage{dir: dir}, nil
}

// Dir returns the root directory.
func (s *JSONStorage) Dir() string {
	return s.dir
}

// TablePath returns the file backing a table.
func (s *JSONStorage) TablePath(database, table string) string {
	return filepath.Join(s.dir, database, table+jsonExt)
}

func (s *JSONStorage) ReadTable(database, table string) ([]byte, error) {
	if err := validName(database, table); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.TablePath(database, table))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", types.ErrNotFound, database, table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table file: %w", err)
	}
	return data, nil
}

func (s *JSONStorage) WriteTable(database, table string, data []byte) error {
	if err := validName(database, table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.TablePath(database, table)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s/%s", types.ErrTableExists, database, table)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return writeFileAtomic(path, data)
}

func (s *JSONStorage) EditTable(database, table string, data []byte) error {
	if err := validName(database, table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.TablePath(database, table)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", types.ErrNotFound, database, table)
	}
	return writeFileAtomic(path, data)
}

func (s *JSONStorage) ShowTables(database string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, database))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		tables = append(tables, strings.TrimSuffix(e.Name(), jsonExt))
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *JSONStorage) Close() error {
	return nil
}

// writeFileAtomic writes to a temporary file in the same directory and
// renames it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync table file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}

// validName rejects names that would escape the data directory.
func validName(names ...string) error {
	for _, n := range names {
		if n == "" || n == "." || n == ".." || strings.ContainsAny(n, `/\`) {
			return fmt.Errorf("invalid name %q", n)
		}
	}
	return nil
}
