// Package catalog declares table schemas: column names, column types and the
// primary key of each table, grouped by database.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zakazai/flatdb/internal/types"
)

// Catalog describes tables.
type Catalog interface {
	// Describe returns the schema of a table or an error wrapping
	// types.ErrUnknownTable.
	Describe(database, table string) (types.Schema, error)
	// Define declares a new table.
	Define(database string, schema types.Schema) error
	// Drop removes a declaration. Dropping an undeclared table is not an
	// error.
	Drop(database, table string) error
	// Tables lists declared table names, sorted.
	Tables(database string) ([]string, error)
}

// MemoryCatalog keeps schemas in memory only.
type MemoryCatalog struct {
	mu        sync.RWMutex
	databases map[string]map[string]types.Schema
}

// NewMemoryCatalog returns an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{databases: make(map[string]map[string]types.Schema)}
}

func (c *MemoryCatalog) Describe(database, table string) (types.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.databases[database][table]
	if !ok {
		return types.Schema{}, fmt.Errorf("%w: %s/%s", types.ErrUnknownTable, database, table)
	}
	return cloneSchema(s), nil
}

func (c *MemoryCatalog) Define(database string, schema types.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tables, ok := c.databases[database]
	if !ok {
		tables = make(map[string]types.Schema)
		c.databases[database] = tables
	}
	if _, exists := tables[schema.Table]; exists {
		return fmt.Errorf("%w: %s/%s", types.ErrTableExists, database, schema.Table)
	}
	tables[schema.Table] = cloneSchema(schema)
	return nil
}

func (c *MemoryCatalog) Drop(database, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.databases[database], table)
	return nil
}

func (c *MemoryCatalog) Tables(database string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.databases[database]))
	for name := range c.databases[database] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// cloneSchema copies the column slice so callers cannot alter catalog state.
func cloneSchema(s types.Schema) types.Schema {
	s.Columns = append([]types.ColumnSpec(nil), s.Columns...)
	return s
}
