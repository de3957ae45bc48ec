// Package table is the in-memory representation of one table: its columns,
// its rows, the select-then-compare query protocol and the validated
// mutations.
//
// A Table is not safe for concurrent use.
package table

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/maruel/ksid"
	"github.com/zakazai/flatdb/internal/types"
)

// Catalog is the part of the schema catalog a table needs.
type Catalog interface {
	Describe(database, table string) (types.Schema, error)
}

// Table holds the rows of one table snapshot.
type Table struct {
	store   types.Storage
	catalog Catalog

	database string
	name     string
	// schemaName is the catalog entry used to validate mutations. Query
	// results keep the entry of the table they were derived from.
	schemaName string
	transient  bool

	columns []string
	rows    []types.Row
	cursor  int

	// version increments on every row mutation; queries and results taken
	// at an older version are stale.
	version uint64
	schema  *types.Schema

	// origin and originVersion are set on query results. Results share row
	// storage with origin.
	origin        *Table
	originVersion uint64
}

// TransientName returns a fresh name for a table that is not persisted.
func TransientName() string {
	return "flatdb_" + ksid.NewID().String()
}

// Load reads a persisted table.
func Load(store types.Storage, catalog Catalog, database, name string) (*Table, error) {
	t := &Table{
		store:      store,
		catalog:    catalog,
		database:   database,
		name:       name,
		schemaName: name,
	}
	if err := t.read(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromRows builds a transient table from in-memory data. Values are
// normalized and copied.
func FromRows(store types.Storage, catalog Catalog, database, name string, columns []string, rows []types.Row) *Table {
	t := &Table{
		store:      store,
		catalog:    catalog,
		database:   database,
		name:       name,
		schemaName: name,
		transient:  true,
		columns:    slices.Clone(columns),
		rows:       make([]types.Row, len(rows)),
	}
	for i, r := range rows {
		t.rows[i] = types.NormalizeRow(r)
	}
	return t
}

func (t *Table) read() error {
	data, err := t.store.ReadTable(t.database, t.name)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", types.ErrStorageRead, t.database, t.name, err)
	}
	columns, rows, err := types.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", types.ErrStorageRead, t.database, t.name, err)
	}
	t.columns = columns
	t.rows = rows
	t.cursor = 0
	t.touch()
	return nil
}

// derive builds a query result holding the rows at idx, in order.
func (t *Table) derive(idx []int) *Table {
	rows := make([]types.Row, len(idx))
	for i, j := range idx {
		rows[i] = t.rows[j]
	}
	return &Table{
		store:         t.store,
		catalog:       t.catalog,
		database:      t.database,
		name:          TransientName(),
		schemaName:    t.schemaName,
		transient:     true,
		columns:       slices.Clone(t.columns),
		rows:          rows,
		origin:        t,
		originVersion: t.version,
	}
}

func (t *Table) touch() {
	t.version++
}

func (t *Table) Name() string     { return t.name }
func (t *Table) Database() string { return t.database }
func (t *Table) Len() int         { return len(t.rows) }

// Transient reports whether the table has no persisted slot.
func (t *Table) Transient() bool { return t.transient }

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Rows returns copies of all rows.
func (t *Table) Rows() []types.Row {
	out := make([]types.Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}

// Row returns a copy of row i.
func (t *Table) Row(i int) types.Row {
	return t.rows[i].Clone()
}

// Schema returns the catalog schema, fetching it on first use.
func (t *Table) Schema() (types.Schema, error) {
	if t.schema == nil {
		s, err := t.catalog.Describe(t.database, t.schemaName)
		if err != nil {
			return types.Schema{}, err
		}
		t.schema = &s
	}
	return *t.schema, nil
}

// InvalidateSchema drops the cached schema so the next validation asks the
// catalog again.
func (t *Table) InvalidateSchema() {
	t.schema = nil
}

// Commit writes the current columns and rows over the persisted copy.
func (t *Table) Commit() error {
	if t.transient {
		return fmt.Errorf("%w: %s cannot be committed", types.ErrTransientTable, t.name)
	}
	data, err := types.Encode(t.columns, t.rows)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", types.ErrStorageWrite, t.database, t.name, err)
	}
	if err := t.store.EditTable(t.database, t.name, data); err != nil {
		return fmt.Errorf("%w: %s/%s: %w", types.ErrStorageWrite, t.database, t.name, err)
	}
	return nil
}

// SaveAs persists the table into a new slot called name and binds the
// table to it, schema included. A query result stops sharing rows with its
// origin. Declaring name in the catalog is up to the caller; until then
// mutations that need the schema fail.
func (t *Table) SaveAs(name string) error {
	data, err := types.Encode(t.columns, t.rows)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", types.ErrStorageWrite, t.database, name, err)
	}
	if err := t.store.WriteTable(t.database, name, data); err != nil {
		return fmt.Errorf("%w: %s/%s: %w", types.ErrStorageWrite, t.database, name, err)
	}
	rows := make([]types.Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = r.Clone()
	}
	t.rows = rows
	t.name = name
	t.schemaName = name
	t.schema = nil
	t.transient = false
	t.origin = nil
	t.touch()
	return nil
}

// Reload discards in-memory changes and reads the persisted copy again.
func (t *Table) Reload() error {
	if t.transient {
		return fmt.Errorf("%w: %s has nothing to reload", types.ErrTransientTable, t.name)
	}
	return t.read()
}

// Next returns the row under the cursor and advances it. It returns
// types.ErrIterationExhausted once every row was returned.
func (t *Table) Next() (types.Row, error) {
	if t.cursor >= len(t.rows) {
		return nil, types.ErrIterationExhausted
	}
	r := t.rows[t.cursor].Clone()
	t.cursor++
	return r, nil
}

// Rewind moves the cursor back to the first row.
func (t *Table) Rewind() {
	t.cursor = 0
}

// All iterates over copies of the rows without using the cursor.
func (t *Table) All() iter.Seq[types.Row] {
	return func(yield func(types.Row) bool) {
		for _, r := range t.rows {
			if !yield(r.Clone()) {
				return
			}
		}
	}
}

// resolve turns a column name or position into a position.
func (t *Table) resolve(key any) (int, error) {
	switch k := types.Normalize(key).(type) {
	case string:
		if i := slices.Index(t.columns, k); i >= 0 {
			return i, nil
		}
		return 0, fmt.Errorf("%w: %q in %s", types.ErrUnknownColumn, k, t.name)
	case int64:
		if k < 0 || k >= int64(len(t.columns)) {
			return 0, fmt.Errorf("%w: position %d out of range [0, %d)", types.ErrUnknownColumn, k, len(t.columns))
		}
		return int(k), nil
	default:
		return 0, fmt.Errorf("%w: unsupported column key %v (%T)", types.ErrUnknownColumn, key, key)
	}
}

// SortBy stably sorts the rows in place by the values of one column.
func (t *Table) SortBy(key any) error {
	pos, err := t.resolve(key)
	if err != nil {
		return err
	}
	sort.SliceStable(t.rows, func(i, j int) bool {
		return types.Order(t.rows[i][pos], t.rows[j][pos]) < 0
	})
	t.touch()
	return nil
}

// Rename changes the name of a column. Row data and the catalog are left
// untouched, so the live name drifts from the catalog until it is updated.
func (t *Table) Rename(key any, newName string) error {
	pos, err := t.resolve(key)
	if err != nil {
		return err
	}
	if newName == "" {
		return fmt.Errorf("%w: empty column name", types.ErrInvalidSchema)
	}
	if i := slices.Index(t.columns, newName); i >= 0 && i != pos {
		return fmt.Errorf("%w: column %s already exists", types.ErrInvalidSchema, newName)
	}
	t.columns[pos] = newName
	return nil
}

// Snapshot returns every row as a query result, as if by a comparison that
// matches everything. Sorting the snapshot leaves t untouched.
func (t *Table) Snapshot() *Table {
	idx := make([]int, len(t.rows))
	for i := range idx {
		idx[i] = i
	}
	return t.derive(idx)
}

// Project returns a transient table holding copies of the given columns.
// The projection is detached from t and has no catalog schema.
func (t *Table) Project(keys ...any) (*Table, error) {
	pos := make([]int, len(keys))
	columns := make([]string, len(keys))
	for i, k := range keys {
		p, err := t.resolve(k)
		if err != nil {
			return nil, err
		}
		pos[i] = p
		columns[i] = t.columns[p]
	}
	rows := make([]types.Row, len(t.rows))
	for i, r := range t.rows {
		row := make(types.Row, len(pos))
		for j, p := range pos {
			row[j] = r[p]
		}
		rows[i] = row
	}
	name := TransientName()
	return &Table{
		store:      t.store,
		catalog:    t.catalog,
		database:   t.database,
		name:       name,
		schemaName: name,
		transient:  true,
		columns:    columns,
		rows:       rows,
	}, nil
}
