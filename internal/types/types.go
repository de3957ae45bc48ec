package types

import (
	"fmt"
	"strings"
)

// Kind is the scalar type of a column.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindString
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Exemplar returns the zero value used to represent the kind.
func (k Kind) Exemplar() any {
	switch k {
	case KindInt:
		return int64(0)
	case KindString:
		return ""
	case KindFloat:
		return float64(0)
	case KindBool:
		return false
	default:
		return nil
	}
}

// ParseKind accepts the kind names used in catalog files and statements.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "int", "integer", "int64":
		return KindInt, nil
	case "string", "text", "str":
		return KindString, nil
	case "float", "float64", "double", "real":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	}
	return KindInvalid, fmt.Errorf("unknown column type %q", s)
}

// Row is one table row. Values are int64, string, float64 or bool.
type Row []any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// ColumnSpec declares one column of a table in the catalog.
type ColumnSpec struct {
	Name string
	Kind Kind
}

// Schema is the catalog description of a table.
type Schema struct {
	Table      string
	Columns    []ColumnSpec
	PrimaryKey string
}

// Names returns the declared column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Kinds returns the declared column kinds in order.
func (s Schema) Kinds() []Kind {
	kinds := make([]Kind, len(s.Columns))
	for i, c := range s.Columns {
		kinds[i] = c.Kind
	}
	return kinds
}

// Exemplars returns one zero value per column, in order.
func (s Schema) Exemplars() []any {
	out := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Kind.Exemplar()
	}
	return out
}

// Validate checks column names are unique, kinds are known and the primary
// key names one of the columns.
func (s Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidSchema)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrInvalidSchema, s.Table)
	}
	seen := make(map[string]bool, len(s.Columns))
	for i, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("%w: column %d: name is required", ErrInvalidSchema, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate column name: %s", ErrInvalidSchema, c.Name)
		}
		seen[c.Name] = true
		if c.Kind == KindInvalid {
			return fmt.Errorf("%w: column %s: type is required", ErrInvalidSchema, c.Name)
		}
	}
	if !seen[s.PrimaryKey] {
		return fmt.Errorf("%w: primary key %q is not a column of %s", ErrInvalidSchema, s.PrimaryKey, s.Table)
	}
	return nil
}

// Storage is the persistence adapter: byte-level access to named tables
// grouped by database.
type Storage interface {
	// ReadTable returns the serialized table or an error wrapping ErrNotFound.
	ReadTable(database, table string) ([]byte, error)
	// WriteTable creates a new named slot; it fails with ErrTableExists.
	WriteTable(database, table string, data []byte) error
	// EditTable replaces an existing slot; it fails with ErrNotFound.
	EditTable(database, table string, data []byte) error
	ShowTables(database string) ([]string, error)
	Close() error
}
