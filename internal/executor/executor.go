// Package executor runs parsed statements against the tables of one
// database. Each statement maps directly onto table operations.
package executor

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/zakazai/flatdb/internal/parser"
	"github.com/zakazai/flatdb/internal/table"
)

// Database opens and creates tables.
type Database interface {
	CreateTable(name string, columns []string, exemplars []any, primaryKey string) (*table.Table, error)
	Table(name string) (*table.Table, error)
	Tables() ([]string, error)
	Sync() error
}

type Options struct {
	// Autocommit persists a table after every statement that changes it.
	Autocommit bool
}

// Executor keeps the tables opened during a session so uncommitted changes
// survive from one statement to the next.
type Executor struct {
	db   Database
	opts Options
	open map[string]*table.Table
}

// Result is the outcome of one statement.
type Result struct {
	// Table is set for SELECT.
	Table *table.Table
	// Inserted holds one entry per row of an INSERT.
	Inserted []table.InsertResult
	// Affected counts the rows changed by INSERT, UPDATE and DELETE.
	Affected int
	Message  string
}

func (r *Result) String() string {
	var b strings.Builder
	if r.Table != nil {
		b.WriteString(r.Table.Format())
	}
	for _, ins := range r.Inserted {
		if !ins.Accepted() {
			b.WriteString(ins.String())
			b.WriteByte('\n')
		}
	}
	if r.Message != "" {
		b.WriteString(r.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

func New(db Database, opts Options) *Executor {
	return &Executor{db: db, opts: opts, open: make(map[string]*table.Table)}
}

// Run parses and executes one statement.
func (e *Executor) Run(input string) (*Result, error) {
	stmt, err := parser.Parse(input)
	if err != nil {
		return nil, err
	}
	return e.Execute(stmt)
}

// Execute executes a parsed statement
func (e *Executor) Execute(stmt parser.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.SelectStatement:
		return e.execSelect(s)
	case *parser.InsertStatement:
		return e.execInsert(s)
	case *parser.UpdateStatement:
		return e.execUpdate(s)
	case *parser.DeleteStatement:
		return e.execDelete(s)
	case *parser.CreateStatement:
		return e.execCreate(s)
	case *parser.RenameColumnStatement:
		return e.execRename(s)
	case *parser.ShowTablesStatement:
		return e.execShowTables()
	case *parser.CommitStatement:
		return e.execCommit(s)
	case *parser.SyncStatement:
		if err := e.db.Sync(); err != nil {
			return nil, err
		}
		return &Result{Message: "synced"}, nil
	default:
		return nil, fmt.Errorf("unsupported statement %T", stmt)
	}
}

// Table returns the session copy of a table, opening it on first use.
func (e *Executor) Table(name string) (*table.Table, error) {
	if t, ok := e.open[name]; ok {
		return t, nil
	}
	t, err := e.db.Table(name)
	if err != nil {
		return nil, err
	}
	e.open[name] = t
	return t, nil
}

// InvalidateSchemas makes every open table fetch its schema from the catalog
// again on next use.
func (e *Executor) InvalidateSchemas() {
	for _, t := range e.open {
		t.InvalidateSchema()
	}
}

// Commit persists every table opened in the session, in name order.
func (e *Executor) Commit() error {
	for _, name := range slices.Sorted(maps.Keys(e.open)) {
		if err := e.open[name].Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) changed(t *table.Table) error {
	if !e.opts.Autocommit {
		return nil
	}
	slog.Debug("Autocommit", "table", t.Name())
	return t.Commit()
}

// filter applies the conditions in order, each to the previous result.
func filter(t *table.Table, where []parser.Condition) (*table.Table, error) {
	cur := t
	for _, c := range where {
		q, err := cur.Select(c.Column)
		if err != nil {
			return nil, err
		}
		if cur, err = q.Compare(c.Op, c.Value); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (e *Executor) execSelect(s *parser.SelectStatement) (*Result, error) {
	t, err := e.Table(s.Table)
	if err != nil {
		return nil, err
	}
	var out *table.Table
	if len(s.Where) > 0 {
		if out, err = filter(t, s.Where); err != nil {
			return nil, err
		}
	} else {
		out = t.Snapshot()
	}
	if s.OrderBy != "" {
		if err := out.SortBy(s.OrderBy); err != nil {
			return nil, err
		}
	}
	if s.Columns != nil {
		keys := make([]any, len(s.Columns))
		for i, c := range s.Columns {
			keys[i] = c
		}
		if out, err = out.Project(keys...); err != nil {
			return nil, err
		}
	}
	return &Result{Table: out, Message: plural(out.Len(), "row")}, nil
}

func (e *Executor) execInsert(s *parser.InsertStatement) (*Result, error) {
	t, err := e.Table(s.Table)
	if err != nil {
		return nil, err
	}
	results, err := t.InsertAll(s.Rows...)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, r := range results {
		if r.Accepted() {
			n++
		}
	}
	if n > 0 {
		if err := e.changed(t); err != nil {
			return nil, err
		}
	}
	return &Result{
		Inserted: results,
		Affected: n,
		Message:  fmt.Sprintf("inserted %d of %s", n, plural(len(results), "row")),
	}, nil
}

func (e *Executor) execUpdate(s *parser.UpdateStatement) (*Result, error) {
	t, err := e.Table(s.Table)
	if err != nil {
		return nil, err
	}
	var match *table.Table
	if len(s.Where) > 0 {
		if match, err = filter(t, s.Where); err != nil {
			return nil, err
		}
	}
	n, err := t.Update(s.Column, s.Value, match)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if err := e.changed(t); err != nil {
			return nil, err
		}
	}
	return &Result{Affected: n, Message: "updated " + plural(n, "row")}, nil
}

func (e *Executor) execDelete(s *parser.DeleteStatement) (*Result, error) {
	t, err := e.Table(s.Table)
	if err != nil {
		return nil, err
	}
	q, err := t.Select(s.Where.Column)
	if err != nil {
		return nil, err
	}
	n, err := q.DeleteWhere(s.Where.Op, s.Where.Value)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if err := e.changed(t); err != nil {
			return nil, err
		}
	}
	return &Result{Affected: n, Message: "deleted " + plural(n, "row")}, nil
}

func (e *Executor) execCreate(s *parser.CreateStatement) (*Result, error) {
	columns := make([]string, len(s.Columns))
	exemplars := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		columns[i] = c.Name
		exemplars[i] = c.Kind.Exemplar()
	}
	t, err := e.db.CreateTable(s.Table, columns, exemplars, s.PrimaryKey)
	if err != nil {
		return nil, err
	}
	e.open[s.Table] = t
	return &Result{Message: "created table " + s.Table}, nil
}

func (e *Executor) execRename(s *parser.RenameColumnStatement) (*Result, error) {
	t, err := e.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if err := t.Rename(s.From, s.To); err != nil {
		return nil, err
	}
	if err := e.changed(t); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("renamed %s.%s to %s", s.Table, s.From, s.To)}, nil
}

func (e *Executor) execShowTables() (*Result, error) {
	names, err := e.db.Tables()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return &Result{Message: "no tables"}, nil
	}
	return &Result{Message: strings.Join(names, "\n")}, nil
}

func (e *Executor) execCommit(s *parser.CommitStatement) (*Result, error) {
	if s.Table == "" {
		if err := e.Commit(); err != nil {
			return nil, err
		}
		return &Result{Message: "committed " + plural(len(e.open), "table")}, nil
	}
	t, err := e.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if err := t.Commit(); err != nil {
		return nil, err
	}
	return &Result{Message: "committed " + s.Table}, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
