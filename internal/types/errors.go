package types

import "errors"

var (
	// ErrStorageRead wraps adapter failures while reading a table.
	ErrStorageRead = errors.New("storage read failed")
	// ErrStorageWrite wraps adapter failures while writing a table.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrNotFound is returned by adapters for a missing table.
	ErrNotFound = errors.New("table not found")
	// ErrTableExists is returned when creating a slot that already exists.
	ErrTableExists = errors.New("table already exists")

	ErrUnknownColumn      = errors.New("unknown column")
	ErrNoColumnSelected   = errors.New("no column selected")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrIterationExhausted = errors.New("iteration exhausted")

	// ErrTransientTable is returned when committing a table that has no
	// persisted name, or when updating a query result in place.
	ErrTransientTable = errors.New("table is transient")
	// ErrUnknownTable is returned by catalogs for undeclared tables.
	ErrUnknownTable  = errors.New("unknown table")
	ErrDuplicateKey  = errors.New("duplicate primary key")
	ErrForeignResult = errors.New("result was not derived from this table")
	ErrInvalidSchema = errors.New("invalid schema")
)
