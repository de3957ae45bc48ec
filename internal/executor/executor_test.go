package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/flatdb"
	"github.com/zakazai/flatdb/internal/executor"
	"github.com/zakazai/flatdb/internal/types"
)

func newExecutor(t *testing.T, opts executor.Options) (*executor.Executor, *flatdb.DB) {
	t.Helper()
	db, err := flatdb.Open("test", flatdb.Config{Storage: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	e := executor.New(db, opts)
	run(t, e, "CREATE TABLE table1 (id INT PRIMARY KEY, name STRING, score FLOAT)")
	run(t, e, "INSERT INTO table1 VALUES (1, 'Alice', 3.5), (2, 'Bob', 1.0), (3, 'Cindy', 2.25)")
	return e, db
}

func run(t *testing.T, e *executor.Executor, input string) *executor.Result {
	t.Helper()
	res, err := e.Run(input)
	require.NoError(t, err, input)
	return res
}

func names(t *testing.T, res *executor.Result) []any {
	t.Helper()
	require.NotNil(t, res.Table)
	q, err := res.Table.Select("name")
	require.NoError(t, err)
	return q.Values()
}

func TestSelect(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})

	tests := []struct {
		name  string
		input string
		want  []any
	}{
		{"all", "SELECT * FROM table1", []any{"Alice", "Bob", "Cindy"}},
		{"equality", "SELECT * FROM table1 WHERE name == 'Cindy'", []any{"Cindy"}},
		{"inequality", "SELECT * FROM table1 WHERE name <> 'Cindy'", []any{"Alice", "Bob"}},
		{"and", "SELECT * FROM table1 WHERE id > 1 AND score < 2.0", []any{"Bob"}},
		{"int against float", "SELECT * FROM table1 WHERE score >= 2", []any{"Alice", "Cindy"}},
		{"order", "SELECT * FROM table1 ORDER BY score", []any{"Bob", "Cindy", "Alice"}},
		{"where and order", "SELECT name FROM table1 WHERE id >= 2 ORDER BY name", []any{"Bob", "Cindy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(t, run(t, e, tt.input)))
		})
	}

	// Ordering a result leaves the session table alone.
	assert.Equal(t, []any{"Alice", "Bob", "Cindy"}, names(t, run(t, e, "SELECT * FROM table1")))

	res := run(t, e, "SELECT id, name FROM table1 WHERE id = 2")
	assert.Equal(t, "+--+----+\n|id|name|\n+--+----+\n|2 |Bob |\n+--+----+\n1 row\n", res.String())
}

func TestSelectErrors(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})

	_, err := e.Run("SELECT * FROM nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = e.Run("SELECT missing FROM table1")
	assert.ErrorIs(t, err, types.ErrUnknownColumn)
	_, err = e.Run("SELECT * FROM table1 WHERE name = 1")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	_, err = e.Run("SELECT * FROM table1 ORDER BY missing")
	assert.ErrorIs(t, err, types.ErrUnknownColumn)
	_, err = e.Run("SELECT FROM table1")
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})

	res := run(t, e, "INSERT INTO table1 VALUES (4, 'Dan', 0.5), (1, 'Again', 0.0), (5, 'Eve')")
	assert.Equal(t, 1, res.Affected)
	require.Len(t, res.Inserted, 3)
	assert.True(t, res.Inserted[0].Accepted())
	assert.Equal(t, "duplicate primary key", res.Inserted[1].Reason.String())
	assert.Equal(t, "wrong number of values", res.Inserted[2].Reason.String())
	assert.Contains(t, res.String(), "inserted 1 of 3 rows")
	assert.Contains(t, res.String(), "skipping [1 Again 0]")
}

func TestUpdate(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})

	res := run(t, e, "UPDATE table1 SET name = 'Chloe' WHERE name = 'Cindy'")
	assert.Equal(t, 1, res.Affected)
	assert.Equal(t, []any{"Alice", "Bob", "Chloe"}, names(t, run(t, e, "SELECT * FROM table1")))

	res = run(t, e, "UPDATE table1 SET name = 'new_name'")
	assert.Equal(t, 3, res.Affected)
	assert.Equal(t, "updated 3 rows\n", res.String())

	res = run(t, e, "UPDATE table1 SET score = 0.0 WHERE id > 1 AND id < 3")
	assert.Equal(t, 1, res.Affected)

	_, err := e.Run("UPDATE table1 SET id = 2 WHERE id = 1")
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	_, err = e.Run("UPDATE table1 SET score = 'high'")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestDelete(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})

	res := run(t, e, "DELETE FROM table1 WHERE score > 2")
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, []any{"Bob"}, names(t, run(t, e, "SELECT * FROM table1")))

	res = run(t, e, "DELETE FROM table1 WHERE name = 'Nobody'")
	assert.Equal(t, "deleted 0 rows\n", res.String())
}

func TestRename(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})

	run(t, e, "ALTER TABLE table1 RENAME COLUMN name TO first_name")
	res := run(t, e, "SELECT first_name FROM table1 WHERE id = 1")
	assert.Equal(t, "Alice", res.Table.Row(0)[0])
	_, err := e.Run("SELECT name FROM table1")
	assert.ErrorIs(t, err, types.ErrUnknownColumn)
}

func TestCommit(t *testing.T) {
	e, db := newExecutor(t, executor.Options{})
	run(t, e, "CREATE TABLE other (k STRING)")

	// Nothing persisted yet beyond the empty tables.
	tb, err := db.Table("table1")
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Len())

	res := run(t, e, "COMMIT table1")
	assert.Equal(t, "committed table1\n", res.String())
	tb, err = db.Table("table1")
	require.NoError(t, err)
	assert.Equal(t, 3, tb.Len())

	run(t, e, "INSERT INTO other VALUES ('x')")
	res = run(t, e, "COMMIT")
	assert.Equal(t, "committed 2 tables\n", res.String())
	tb, err = db.Table("other")
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Len())

	res = run(t, e, "SHOW TABLES")
	assert.Equal(t, "other\ntable1\n", res.String())
}

func TestAutocommit(t *testing.T) {
	e, db := newExecutor(t, executor.Options{Autocommit: true})

	tb, err := db.Table("table1")
	require.NoError(t, err)
	assert.Equal(t, 3, tb.Len())

	run(t, e, "DELETE FROM table1 WHERE id = 2")
	run(t, e, "UPDATE table1 SET name = 'Zed' WHERE id = 3")
	tb, err = db.Table("table1")
	require.NoError(t, err)
	assert.Equal(t, []types.Row{
		{int64(1), "Alice", 3.5},
		{int64(3), "Zed", 2.25},
	}, tb.Rows())
}

func TestShowTablesEmpty(t *testing.T) {
	db, err := flatdb.Open("empty", flatdb.Config{Storage: "memory"})
	require.NoError(t, err)
	res, err := executor.New(db, executor.Options{}).Run("SHOW TABLES")
	require.NoError(t, err)
	assert.Equal(t, "no tables\n", res.String())
}

func TestSyncWithoutMirror(t *testing.T) {
	e, _ := newExecutor(t, executor.Options{})
	res := run(t, e, "SYNC")
	assert.Equal(t, "synced\n", res.String())
}
