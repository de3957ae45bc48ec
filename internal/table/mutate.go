package table

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/zakazai/flatdb/internal/types"
)

// RejectReason tells why Insert skipped a row.
type RejectReason int

const (
	Accepted RejectReason = iota
	RejectArity
	RejectType
	RejectDuplicateKey
)

func (r RejectReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectArity:
		return "wrong number of values"
	case RejectType:
		return "type mismatch"
	case RejectDuplicateKey:
		return "duplicate primary key"
	default:
		return fmt.Sprintf("RejectReason(%d)", int(r))
	}
}

// InsertResult is the outcome of one Insert.
type InsertResult struct {
	Row    types.Row
	Reason RejectReason
	// Column is the offending column for type and key rejections.
	Column string
	Detail string
}

func (r InsertResult) Accepted() bool { return r.Reason == Accepted }

func (r InsertResult) String() string {
	if r.Accepted() {
		return fmt.Sprintf("inserted %v", []any(r.Row))
	}
	return fmt.Sprintf("skipping %v: %s: %s", []any(r.Row), r.Reason, r.Detail)
}

// Insert appends row when it matches the catalog schema and its primary
// key is new. A rejected row leaves the table untouched and is reported in
// the result, not as an error; errors are reserved for catalog and column
// lookup failures.
func (t *Table) Insert(row types.Row) (InsertResult, error) {
	schema, err := t.Schema()
	if err != nil {
		return InsertResult{}, err
	}
	row = types.NormalizeRow(row)
	res := InsertResult{Row: row}
	if len(row) != len(schema.Columns) {
		res.Reason = RejectArity
		res.Detail = fmt.Sprintf("got %d values, want %d", len(row), len(schema.Columns))
		return t.reject(res), nil
	}
	for i, c := range schema.Columns {
		if k := types.KindOf(row[i]); k != c.Kind {
			res.Reason = RejectType
			res.Column = c.Name
			res.Detail = fmt.Sprintf("column %s wants %s, got %s", c.Name, c.Kind, k)
			return t.reject(res), nil
		}
	}
	q, err := t.Select(schema.PrimaryKey)
	if err != nil {
		return InsertResult{}, err
	}
	key := row[q.Position()]
	dup, err := q.Contains(key)
	if err != nil {
		return InsertResult{}, err
	}
	if dup {
		res.Reason = RejectDuplicateKey
		res.Column = schema.PrimaryKey
		res.Detail = fmt.Sprintf("%s=%s already exists", schema.PrimaryKey, types.FormatValue(key))
		return t.reject(res), nil
	}
	t.rows = append(t.rows, row)
	t.touch()
	return res, nil
}

func (t *Table) reject(res InsertResult) InsertResult {
	slog.Warn("Skipping row", "table", t.name, "row", []any(res.Row), "reason", res.Reason.String(), "detail", res.Detail)
	return res
}

// InsertAll inserts rows in order and returns one result per row. It stops
// at the first error.
func (t *Table) InsertAll(rows ...types.Row) ([]InsertResult, error) {
	out := make([]InsertResult, 0, len(rows))
	for _, r := range rows {
		res, err := t.Insert(r)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Update sets one column to value on the rows of match, or on every row
// when match is nil, and returns how many rows were changed. match must be
// a query result derived from t with no mutation of t in between.
//
// A query result shares its rows with the table it came from and cannot be
// updated itself; update the origin with the result as match instead.
func (t *Table) Update(key any, value any, match *Table) (int, error) {
	if t.origin != nil {
		return 0, fmt.Errorf("%w: %s shares rows with %s; update %s with it as the match", types.ErrTransientTable, t.name, t.origin.name, t.origin.name)
	}
	pos, err := t.resolve(key)
	if err != nil {
		return 0, err
	}
	schema, err := t.Schema()
	if err != nil {
		return 0, err
	}
	if pos >= len(schema.Columns) {
		return 0, fmt.Errorf("%w: column %s is not in the schema of %s", types.ErrUnknownColumn, t.columns[pos], t.schemaName)
	}
	value = types.Normalize(value)
	if want, got := schema.Columns[pos].Kind, types.KindOf(value); want != got {
		return 0, fmt.Errorf("%w: column %s wants %s, got %s", types.ErrTypeMismatch, t.columns[pos], want, got)
	}
	targets := t.rows
	if match != nil {
		if err := t.owns(match); err != nil {
			return 0, err
		}
		targets = match.rows
	}
	if schema.Columns[pos].Name == schema.PrimaryKey {
		if err := t.checkKeyUpdate(pos, value, targets); err != nil {
			return 0, err
		}
	}
	for _, r := range targets {
		r[pos] = value
	}
	if len(targets) > 0 {
		t.touch()
	}
	return len(targets), nil
}

// owns verifies that match was derived from t, possibly through other
// results, and that none of the tables on the way changed since.
func (t *Table) owns(match *Table) error {
	for r := match; r.origin != nil; r = r.origin {
		if r.originVersion != r.origin.version {
			return fmt.Errorf("%w: %s is stale", types.ErrForeignResult, match.name)
		}
		if r.origin == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not a result of %s", types.ErrForeignResult, match.name, t.name)
}

func (t *Table) checkKeyUpdate(pos int, value any, targets []types.Row) error {
	if len(targets) > 1 {
		return fmt.Errorf("%w: %d rows would get %s=%s", types.ErrDuplicateKey, len(targets), t.columns[pos], types.FormatValue(value))
	}
	if len(targets) == 0 {
		return nil
	}
	if c, err := types.Compare(targets[0][pos], value); err == nil && c == 0 {
		return nil
	}
	if slices.ContainsFunc(t.rows, func(r types.Row) bool {
		c, err := types.Compare(r[pos], value)
		return err == nil && c == 0
	}) {
		return fmt.Errorf("%w: %s=%s already exists", types.ErrDuplicateKey, t.columns[pos], types.FormatValue(value))
	}
	return nil
}
