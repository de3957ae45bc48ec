// Package flatdb is a small tabular data store kept in flat files.
//
// A DB binds a storage backend and a schema catalog for one database.
// Tables are loaded whole into memory, queried and mutated there, and
// written back with Commit.
package flatdb

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/zakazai/flatdb/internal/catalog"
	"github.com/zakazai/flatdb/internal/storage"
	"github.com/zakazai/flatdb/internal/table"
	"github.com/zakazai/flatdb/internal/types"
)

// DB is one open database.
type DB struct {
	name    string
	config  Config
	store   types.Storage
	catalog catalog.Catalog
}

// Open opens the database called name. Memory storage keeps its catalog in
// memory too; every other backend reads <data_dir>/<name>/catalog.yaml.
func Open(name string, config Config) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("database name is required")
	}
	store, err := storage.NewStorage(storage.StorageConfig{
		Type:      storage.StorageType(config.Storage),
		Dir:       config.DataDir,
		Versioned: config.Versioned,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	var cat catalog.Catalog
	if config.Storage == string(storage.InMemoryStorageType) {
		cat = catalog.NewMemoryCatalog()
	} else if cat, err = catalog.NewFileCatalog(config.DataDir); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &DB{name: name, config: config, store: store, catalog: cat}, nil
}

func (db *DB) Name() string { return db.name }

// Storage returns the storage backend.
func (db *DB) Storage() types.Storage { return db.store }

// Catalog returns the schema catalog.
func (db *DB) Catalog() catalog.Catalog { return db.catalog }

// CreateTable declares a table in the catalog and persists it empty. The
// column types are taken from exemplars, one value per column.
func (db *DB) CreateTable(name string, columns []string, exemplars []any, primaryKey string) (*table.Table, error) {
	if len(columns) != len(exemplars) {
		return nil, fmt.Errorf("%w: %d columns but %d type exemplars", types.ErrInvalidSchema, len(columns), len(exemplars))
	}
	schema := types.Schema{Table: name, PrimaryKey: primaryKey}
	for i, c := range columns {
		kind := types.KindOf(exemplars[i])
		if kind == types.KindInvalid {
			return nil, fmt.Errorf("%w: column %s: unsupported type %T", types.ErrInvalidSchema, c, exemplars[i])
		}
		schema.Columns = append(schema.Columns, types.ColumnSpec{Name: c, Kind: kind})
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	tables, err := db.store.ShowTables(db.name)
	if err != nil {
		return nil, err
	}
	if slices.Contains(tables, name) {
		return nil, fmt.Errorf("%w: %s/%s", types.ErrTableExists, db.name, name)
	}
	if err := db.catalog.Define(db.name, schema); err != nil {
		return nil, err
	}
	data, err := types.Encode(columns, nil)
	if err != nil {
		return nil, err
	}
	if err := db.store.WriteTable(db.name, name, data); err != nil {
		return nil, db.undefine(name, fmt.Errorf("%w: %s/%s: %w", types.ErrStorageWrite, db.name, name, err))
	}
	return db.Table(name)
}

// Table loads a fresh copy of a persisted table.
func (db *DB) Table(name string) (*table.Table, error) {
	return table.Load(db.store, db.catalog, db.name, name)
}

// FromRows builds a transient table in this database.
func (db *DB) FromRows(columns []string, rows []types.Row) *table.Table {
	return table.FromRows(db.store, db.catalog, db.name, table.TransientName(), columns, rows)
}

// SaveAs persists t under a new name and declares it in the catalog with
// the schema t was validated against.
func (db *DB) SaveAs(t *table.Table, name string) error {
	schema, err := t.Schema()
	if err != nil {
		return err
	}
	schema.Table = name
	// Live column names win over the catalog so renames carry over.
	pk := slices.Index(schema.Names(), schema.PrimaryKey)
	for i, c := range t.Columns() {
		if i < len(schema.Columns) {
			schema.Columns[i].Name = c
		}
	}
	if pk >= 0 {
		schema.PrimaryKey = schema.Columns[pk].Name
	}
	if err := db.catalog.Define(db.name, schema); err != nil {
		return err
	}
	if err := t.SaveAs(name); err != nil {
		return db.undefine(name, err)
	}
	return nil
}

// undefine drops the catalog entry of a table whose data could not be
// written, so the name can be used again.
func (db *DB) undefine(name string, cause error) error {
	if err := db.catalog.Drop(db.name, name); err != nil {
		slog.Warn("Failed to drop catalog entry", "db", db.name, "table", name, "err", err)
	}
	return cause
}

// Tables lists the persisted tables.
func (db *DB) Tables() ([]string, error) {
	return db.store.ShowTables(db.name)
}

// Sync copies every persisted table to the Parquet mirror of hybrid
// storage. Other backends have nothing to sync.
func (db *DB) Sync() error {
	h, ok := db.store.(*storage.HybridStorage)
	if !ok {
		return nil
	}
	return h.SyncNow(db.name)
}

// Close releases the storage backend. Uncommitted changes are lost.
func (db *DB) Close() error {
	return db.store.Close()
}
