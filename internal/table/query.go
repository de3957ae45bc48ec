package table

import (
	"fmt"

	"github.com/zakazai/flatdb/internal/types"
)

// Query is a column selected from a table. It is the left-hand side of a
// comparison, a containment test or a delete.
//
// A query goes stale when its table is mutated, and Contains and Delete
// spend it. A stale or spent query behaves as if no column was selected.
type Query struct {
	table   *Table
	pos     int
	column  []any
	version uint64
	spent   bool
}

// Select picks a column by name or by position.
func (t *Table) Select(key any) (*Query, error) {
	pos, err := t.resolve(key)
	if err != nil {
		return nil, err
	}
	column := make([]any, len(t.rows))
	for i, r := range t.rows {
		column[i] = r[pos]
	}
	return &Query{table: t, pos: pos, column: column, version: t.version}, nil
}

// Column returns the selected column name.
func (q *Query) Column() string { return q.table.columns[q.pos] }

// Position returns the selected column position.
func (q *Query) Position() int { return q.pos }

// Values returns a copy of the selected column values.
func (q *Query) Values() []any {
	return append([]any(nil), q.column...)
}

func (q *Query) live() bool {
	return q != nil && !q.spent && q.version == q.table.version
}

func (q *Query) check() error {
	if !q.live() {
		return types.ErrNoColumnSelected
	}
	return nil
}

// Contains reports whether any selected value equals v, then spends the
// query. On a table with no rows it is false even without a live selection.
func (q *Query) Contains(v any) (bool, error) {
	if q != nil && len(q.table.rows) == 0 {
		q.spent = true
		return false, nil
	}
	if err := q.check(); err != nil {
		return false, err
	}
	q.spent = true
	for _, c := range q.column {
		ok, err := types.Match(types.OpEq, c, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matches returns the row positions whose selected value satisfies op.
func (q *Query) matches(op types.Op, v any) ([]int, error) {
	if err := q.check(); err != nil {
		return nil, err
	}
	var idx []int
	for i, c := range q.column {
		ok, err := types.Match(op, c, v)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", q.Column(), i, err)
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// Compare returns a transient table holding the rows whose selected value
// satisfies op against v, in their original order. The result shares row
// storage with the queried table, so it can drive Update.
func (q *Query) Compare(op types.Op, v any) (*Table, error) {
	idx, err := q.matches(op, v)
	if err != nil {
		return nil, err
	}
	return q.table.derive(idx), nil
}

func (q *Query) Eq(v any) (*Table, error) { return q.Compare(types.OpEq, v) }
func (q *Query) Ne(v any) (*Table, error) { return q.Compare(types.OpNe, v) }
func (q *Query) Lt(v any) (*Table, error) { return q.Compare(types.OpLt, v) }
func (q *Query) Le(v any) (*Table, error) { return q.Compare(types.OpLe, v) }
func (q *Query) Gt(v any) (*Table, error) { return q.Compare(types.OpGt, v) }
func (q *Query) Ge(v any) (*Table, error) { return q.Compare(types.OpGe, v) }

// Delete removes every row whose selected value equals v.
func (q *Query) Delete(v any) (int, error) {
	return q.DeleteWhere(types.OpEq, v)
}

// DeleteWhere removes every row whose selected value satisfies op against
// v and returns how many were removed. The query is spent afterwards.
func (q *Query) DeleteWhere(op types.Op, v any) (int, error) {
	idx, err := q.matches(op, v)
	if err != nil {
		return 0, err
	}
	q.spent = true
	if len(idx) == 0 {
		return 0, nil
	}
	t := q.table
	kept := make([]types.Row, 0, len(t.rows)-len(idx))
	next := 0
	for i, r := range t.rows {
		if next < len(idx) && idx[next] == i {
			next++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	if t.cursor > len(t.rows) {
		t.cursor = len(t.rows)
	}
	t.touch()
	return len(idx), nil
}
