package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/invopop/jsonschema"
	"github.com/zakazai/flatdb/internal/types"
	"gopkg.in/yaml.v3"
)

// FileName is the catalog file kept in each database directory.
const FileName = "catalog.yaml"

const fileVersion = 1

// catalogFile is the YAML layout of a database catalog.
type catalogFile struct {
	Version int          `yaml:"version" json:"version" jsonschema:"description=Catalog format version (always 1)"`
	Tables  []tableEntry `yaml:"tables" json:"tables" jsonschema:"description=Declared tables"`
}

type tableEntry struct {
	Name       string        `yaml:"name" json:"name" jsonschema:"description=Table name"`
	Columns    []columnEntry `yaml:"columns" json:"columns" jsonschema:"description=Ordered column declarations"`
	PrimaryKey string        `yaml:"primary_key" json:"primary_key" jsonschema:"description=Name of the primary key column"`
}

type columnEntry struct {
	Name string `yaml:"name" json:"name" jsonschema:"description=Column name"`
	Type string `yaml:"type" json:"type" jsonschema:"enum=int,enum=string,enum=float,enum=bool"`
}

func (e tableEntry) schema() (types.Schema, error) {
	s := types.Schema{Table: e.Name, PrimaryKey: e.PrimaryKey}
	for _, c := range e.Columns {
		k, err := types.ParseKind(c.Type)
		if err != nil {
			return types.Schema{}, fmt.Errorf("%w: table %s column %s: %w", types.ErrInvalidSchema, e.Name, c.Name, err)
		}
		s.Columns = append(s.Columns, types.ColumnSpec{Name: c.Name, Kind: k})
	}
	return s, s.Validate()
}

func entryFromSchema(s types.Schema) tableEntry {
	e := tableEntry{Name: s.Table, PrimaryKey: s.PrimaryKey}
	for _, c := range s.Columns {
		e.Columns = append(e.Columns, columnEntry{Name: c.Name, Type: c.Kind.String()})
	}
	return e
}

// Validate checks the file version and every table declaration.
func (f *catalogFile) Validate() error {
	if f.Version != fileVersion {
		return fmt.Errorf("unsupported catalog version: %d", f.Version)
	}
	seen := make(map[string]bool, len(f.Tables))
	for _, t := range f.Tables {
		if seen[t.Name] {
			return fmt.Errorf("%w: table %s declared twice", types.ErrInvalidSchema, t.Name)
		}
		seen[t.Name] = true
		if _, err := t.schema(); err != nil {
			return err
		}
	}
	return nil
}

// FileCatalog reads catalogs from <dir>/<database>/catalog.yaml. Parsed
// catalogs are cached until invalidated explicitly or, once Watch is running,
// until the file changes on disk.
type FileCatalog struct {
	dir string

	// OnChange, when set before Watch, is called from the watcher goroutine
	// after a catalog was invalidated because its file changed.
	OnChange func(database string)

	mu      sync.Mutex
	cache   map[string]map[string]types.Schema
	watcher *fsnotify.Watcher
}

// NewFileCatalog returns a catalog rooted at dir.
func NewFileCatalog(dir string) (*FileCatalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	return &FileCatalog{dir: dir, cache: make(map[string]map[string]types.Schema)}, nil
}

// Path returns the catalog file of a database.
func (c *FileCatalog) Path(database string) string {
	return filepath.Join(c.dir, database, FileName)
}

func (c *FileCatalog) Describe(database, table string) (types.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tables, err := c.loadLocked(database)
	if err != nil {
		return types.Schema{}, err
	}
	s, ok := tables[table]
	if !ok {
		return types.Schema{}, fmt.Errorf("%w: %s/%s", types.ErrUnknownTable, database, table)
	}
	return cloneSchema(s), nil
}

func (c *FileCatalog) Tables(database string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tables, err := c.loadLocked(database)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Define appends a table declaration and rewrites the catalog file.
func (c *FileCatalog) Define(database string, schema types.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.readFile(database)
	if err != nil {
		return err
	}
	for _, t := range f.Tables {
		if t.Name == schema.Table {
			return fmt.Errorf("%w: %s/%s", types.ErrTableExists, database, schema.Table)
		}
	}
	f.Tables = append(f.Tables, entryFromSchema(schema))
	return c.writeLocked(database, f)
}

// Drop removes a table declaration and rewrites the catalog file.
func (c *FileCatalog) Drop(database, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.readFile(database)
	if err != nil {
		return err
	}
	n := len(f.Tables)
	f.Tables = slices.DeleteFunc(f.Tables, func(e tableEntry) bool { return e.Name == table })
	if len(f.Tables) == n {
		return nil
	}
	return c.writeLocked(database, f)
}

func (c *FileCatalog) writeLocked(database string, f *catalogFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	path := c.Path(database)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	delete(c.cache, database)
	return nil
}

// Invalidate drops the cached catalog of database.
func (c *FileCatalog) Invalidate(database string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, database)
}

func (c *FileCatalog) loadLocked(database string) (map[string]types.Schema, error) {
	if tables, ok := c.cache[database]; ok {
		return tables, nil
	}
	f, err := c.readFile(database)
	if err != nil {
		return nil, err
	}
	tables := make(map[string]types.Schema, len(f.Tables))
	for _, t := range f.Tables {
		s, err := t.schema()
		if err != nil {
			return nil, err
		}
		tables[t.Name] = s
	}
	c.cache[database] = tables
	if c.watcher != nil {
		c.watchDir(filepath.Dir(c.Path(database)))
	}
	return tables, nil
}

// readFile parses the catalog of database; a missing file is an empty catalog.
func (c *FileCatalog) readFile(database string) (*catalogFile, error) {
	if database == "" || filepath.Base(database) != database {
		return nil, fmt.Errorf("invalid database name %q", database)
	}
	data, err := os.ReadFile(c.Path(database))
	if errors.Is(err, fs.ErrNotExist) {
		return &catalogFile{Version: fileVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", c.Path(database), err)
	}
	return &f, nil
}

// Watch invalidates cached catalogs whenever their file changes, until ctx
// is canceled.
func (c *FileCatalog) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.watcher = w
	for database := range c.cache {
		c.watchDir(filepath.Dir(c.Path(database)))
	}
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.watcher = nil
			c.mu.Unlock()
			_ = w.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != FileName {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					database := filepath.Base(filepath.Dir(event.Name))
					slog.Debug("Catalog changed on disk", "database", database, "op", event.Op.String())
					c.Invalidate(database)
					if c.OnChange != nil {
						c.OnChange(database)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("Error watching catalog", "err", err)
			}
		}
	}()
	return nil
}

func (c *FileCatalog) watchDir(dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create catalog directory", "dir", dir, "err", err)
		return
	}
	if err := c.watcher.Add(dir); err != nil {
		slog.Warn("Failed to watch catalog directory", "dir", dir, "err", err)
	}
}

// FileSchema returns the JSON Schema describing catalog.yaml.
func FileSchema() ([]byte, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(&catalogFile{})
	s.Title = "flatdb catalog"
	return json.MarshalIndent(s, "", "  ")
}
