package flatdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/flatdb"
	"github.com/zakazai/flatdb/internal/types"
)

func memoryDB(t *testing.T) *flatdb.DB {
	t.Helper()
	db, err := flatdb.Open("test", flatdb.Config{Storage: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateTable(t *testing.T) {
	db := memoryDB(t)

	tb, err := db.CreateTable("table1", []string{"id", "name"}, []any{0, ""}, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, tb.Columns())
	assert.Equal(t, 0, tb.Len())
	assert.False(t, tb.Transient())

	_, err = db.CreateTable("table1", []string{"id"}, []any{0}, "id")
	assert.ErrorIs(t, err, types.ErrTableExists)
	_, err = db.CreateTable("t2", []string{"id", "x"}, []any{0}, "id")
	assert.ErrorIs(t, err, types.ErrInvalidSchema)
	_, err = db.CreateTable("t2", []string{"id"}, []any{[]int{}}, "id")
	assert.ErrorIs(t, err, types.ErrInvalidSchema)
	_, err = db.CreateTable("t2", []string{"id"}, []any{0}, "name")
	assert.ErrorIs(t, err, types.ErrInvalidSchema)

	s, err := db.Catalog().Describe("test", "table1")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), ""}, s.Exemplars())

	tables, err := db.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"table1"}, tables)

	_, err = db.Table("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPersistence(t *testing.T) {
	tests := []struct {
		name   string
		config flatdb.Config
	}{
		{"json", flatdb.Config{Storage: "json"}},
		{"parquet", flatdb.Config{Storage: "parquet"}},
		{"hybrid", flatdb.Config{Storage: "hybrid"}},
		{"versioned", flatdb.Config{Storage: "json", Versioned: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.config
			config.DataDir = t.TempDir()

			db, err := flatdb.Open("test", config)
			require.NoError(t, err)
			tb, err := db.CreateTable("scores", []string{"id", "name", "score", "active"}, []any{0, "", 0.0, false}, "id")
			require.NoError(t, err)
			_, err = tb.InsertAll(types.Row{1, "Alice", 9.5, true}, types.Row{2, "Bob", 7.0, false})
			require.NoError(t, err)
			require.NoError(t, tb.Commit())
			require.NoError(t, db.Close())

			db, err = flatdb.Open("test", config)
			require.NoError(t, err)
			defer db.Close()
			tables, err := db.Tables()
			require.NoError(t, err)
			assert.Equal(t, []string{"scores"}, tables)

			tb, err = db.Table("scores")
			require.NoError(t, err)
			assert.Equal(t, []types.Row{
				{int64(1), "Alice", 9.5, true},
				{int64(2), "Bob", 7.0, false},
			}, tb.Rows())

			// The catalog came back from disk too.
			res, err := tb.Insert(types.Row{1, "Again", 1.0, true})
			require.NoError(t, err)
			assert.False(t, res.Accepted())
		})
	}
}

func TestCatalogFileLayout(t *testing.T) {
	dir := t.TempDir()
	db, err := flatdb.Open("shop", flatdb.Config{Storage: "json", DataDir: dir})
	require.NoError(t, err)
	defer db.Close()
	_, err = db.CreateTable("items", []string{"sku", "qty"}, []any{"", 0}, "sku")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "shop", "catalog.yaml"))
	assert.FileExists(t, filepath.Join(dir, "shop", "items.json"))
}

func TestSaveAs(t *testing.T) {
	db := memoryDB(t)
	tb, err := db.CreateTable("table1", []string{"id", "name"}, []any{0, ""}, "id")
	require.NoError(t, err)
	_, err = tb.InsertAll(types.Row{1, "Alice"}, types.Row{2, "Bob"}, types.Row{3, "Cindy"})
	require.NoError(t, err)

	q, err := tb.Select("id")
	require.NoError(t, err)
	big, err := q.Gt(1)
	require.NoError(t, err)
	require.NoError(t, big.Rename("id", "key"))
	require.NoError(t, db.SaveAs(big, "big"))

	s, err := db.Catalog().Describe("test", "big")
	require.NoError(t, err)
	assert.Equal(t, "key", s.PrimaryKey)

	loaded, err := db.Table("big")
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "name"}, loaded.Columns())
	res, err := loaded.Insert(types.Row{2, "Dup"})
	require.NoError(t, err)
	assert.Equal(t, "duplicate primary key", res.Reason.String())
	res, err = loaded.Insert(types.Row{4, "Dan"})
	require.NoError(t, err)
	assert.True(t, res.Accepted())

	fr := db.FromRows([]string{"a"}, []types.Row{{1}})
	assert.Error(t, db.SaveAs(fr, "orphan"))
}

func TestFailedWriteLeavesNoCatalogEntry(t *testing.T) {
	dir := t.TempDir()
	db, err := flatdb.Open("shop", flatdb.Config{Storage: "json", DataDir: dir, LogLevel: "info"})
	require.NoError(t, err)
	defer db.Close()

	// A directory in the way of the data file makes the write fail.
	blocker := filepath.Join(dir, "shop", "items.json")
	require.NoError(t, os.MkdirAll(blocker, 0o755))
	_, err = db.CreateTable("items", []string{"sku", "qty"}, []any{"", 0}, "sku")
	assert.ErrorIs(t, err, types.ErrStorageWrite)
	_, err = db.Catalog().Describe("shop", "items")
	assert.ErrorIs(t, err, types.ErrUnknownTable)

	require.NoError(t, os.Remove(blocker))
	tb, err := db.CreateTable("items", []string{"sku", "qty"}, []any{"", 0}, "sku")
	require.NoError(t, err)
	_, err = tb.Insert(types.Row{"a-1", 2})
	require.NoError(t, err)

	// Same for SaveAs into a slot that only exists in storage.
	data, err := types.Encode([]string{"sku", "qty"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Storage().WriteTable("shop", "taken", data))
	assert.ErrorIs(t, db.SaveAs(tb.Snapshot(), "taken"), types.ErrStorageWrite)
	_, err = db.Catalog().Describe("shop", "taken")
	assert.ErrorIs(t, err, types.ErrUnknownTable)
	require.NoError(t, db.SaveAs(tb.Snapshot(), "copy"))
}

func TestOpenErrors(t *testing.T) {
	_, err := flatdb.Open("", flatdb.Config{Storage: "memory"})
	assert.Error(t, err)
	_, err = flatdb.Open("test", flatdb.Config{Storage: "btree"})
	assert.Error(t, err)
	_, err = flatdb.Open("test", flatdb.Config{Storage: "json"})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flatdb.yaml")

	require.NoError(t, os.WriteFile(path, []byte("storage: parquet\ndata_dir: /tmp/x\n"), 0o644))
	c, err := flatdb.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, flatdb.Config{DataDir: "/tmp/x", Storage: "parquet", LogLevel: "info"}, c)

	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "storage: [\n"},
		{"bad storage", "storage: btree\n"},
		{"versioned parquet", "storage: parquet\nversioned: true\n"},
		{"bad level", "log_level: loud\n"},
		{"missing dir", "data_dir: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))
			_, err := flatdb.LoadConfig(path)
			assert.Error(t, err)
		})
	}

	_, err = flatdb.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
