package types

import (
	"context"
	"fmt"
)

// Row is one result row: column names in select order and their values.
type Row struct {
	Columns []string
	Values  map[string]any
}

// Get returns the value of column name, or nil.
func (r Row) Get(name string) any {
	return r.Values[name]
}

// String returns the value of column name as text. NULL yields "".
func (r Row) String(name string) string {
	switch v := r.Values[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// First returns the value of the first column, or nil for an empty row.
func (r Row) First() any {
	if len(r.Columns) == 0 {
		return nil
	}
	return r.Values[r.Columns[0]]
}

// ResultSet is a lazily iterated query result. Callers must Close it, or use
// Each which closes on every exit path.
type ResultSet interface {
	// Next advances to the next row. It returns false at the end or on error.
	Next() bool
	// Row returns the current row.
	Row() Row
	// Err returns the first iteration error.
	Err() error
	// Count returns the number of rows, computed when the result was created.
	Count() int
	// Each calls fn for every remaining row and closes the result.
	Each(fn func(Row) error) error
	// Close releases the cursor and statement. Idempotent.
	Close() error
}

// Executor runs statements against a single held connection.
type Executor interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, params ...any) (ExecResult, error)
	// Query runs a raw statement that returns rows.
	Query(ctx context.Context, query string) (ResultSet, error)
	// PreparedQuery binds params and runs a statement that returns rows.
	PreparedQuery(ctx context.Context, query string, params ...any) (ResultSet, error)
	// WithTransaction runs fn inside a transaction, or a savepoint when one
	// is already open. An error from fn rolls back and is returned.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExecResult reports the effect of Exec.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// SchemaEditor evolves tables on a backend that can only create tables,
// drop tables, add columns, and create or drop indexes.
type SchemaEditor interface {
	CreateTable(ctx context.Context, table string, columns []ColumnSpec, indexes []IndexSpec, opts TableOptions) error
	AddColumn(ctx context.Context, table string, column ColumnSpec) error
	AlterColumn(ctx context.Context, table string, column ColumnSpec) error
	RenameColumn(ctx context.Context, table, oldName, newName string) error
	RenameTable(ctx context.Context, oldName, newName string) error
	CreateIndex(ctx context.Context, table string, index IndexSpec) error
	AlterIndex(ctx context.Context, table string, index IndexSpec) error
	AlterTable(ctx context.Context, table string, changes AlterSet) error
	DropIndex(ctx context.Context, table, index string) error
	DropTable(ctx context.Context, table string) error
	ClearTable(ctx context.Context, table string) error

	TableList(ctx context.Context) ([]string, error)
	HasTable(ctx context.Context, table string) (bool, error)
	FieldList(ctx context.Context, table string) ([]Field, error)
	IndexList(ctx context.Context, table string) (map[string]IndexSpec, error)
	Shape(ctx context.Context, table string) (TableShape, error)

	ColumnFor(ctx context.Context, table, name string, ft FieldType) (ColumnSpec, error)
	EnumValues(ctx context.Context, table, column string) ([]string, error)
}

// Database is a SQLite database handle: connection lifecycle, file-level
// database management, and access to the executor and schema editor.
type Database interface {
	// Attach connects using cfg. Returns ErrAlreadyAttached when attached.
	Attach(ctx context.Context, cfg Config) error
	// Detach closes the connection. Idempotent; afterwards Executor and
	// Schema return ErrDetached.
	Detach() error

	// Executor returns the statement executor for the held connection.
	Executor() (Executor, error)
	// Schema returns the schema editor for the held connection.
	Schema() (SchemaEditor, error)

	DatabaseList() ([]string, error)
	DatabaseExists(name string) (bool, error)
	CreateDatabase(name string) error
	DropDatabase(name string) error
	SelectDatabase(ctx context.Context, name string, create bool) error

	// SchemaUpdate runs fn with the database in exclusive locking mode,
	// after the one-time integrity check and an enum cache flush.
	SchemaUpdate(ctx context.Context, fn func(ctx context.Context, schema SchemaEditor) error) error
	// CheckAndRepair runs the integrity scan once per ProcessState.
	CheckAndRepair(ctx context.Context) (bool, error)
}
