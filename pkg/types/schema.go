package types

import "strings"

// IdentityColumn is the reserved name of the synthesized row identity column.
const IdentityColumn = "ID"

// IndexKind distinguishes plain from unique indexes.
type IndexKind string

// Supported index kinds.
const (
	IndexPlain  IndexKind = "index"
	IndexUnique IndexKind = "unique"
)

// Normalize maps unsupported kinds (fulltext, etc.) to IndexPlain.
func (k IndexKind) Normalize() IndexKind {
	if k == IndexUnique {
		return IndexUnique
	}
	return IndexPlain
}

// ColumnSpec describes a column to create or alter.
type ColumnSpec struct {
	Name    string
	Type    string   // Backend type text, e.g. "VARCHAR(255) COLLATE NOCASE".
	NotNull bool     // Adds NOT NULL.
	Default string   // Literal SQL default expression; empty means none.
	Enums   []string // Allowed values for emulated enum/set domains.
}

// Definition renders the column specification text without the name.
func (c ColumnSpec) Definition() string {
	var b strings.Builder
	b.WriteString(c.Type)
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return strings.TrimSpace(b.String())
}

// Field returns the name/spec pair for c.
func (c ColumnSpec) Field() Field {
	return Field{Name: c.Name, Spec: c.Definition()}
}

// Field is a column name with its raw specification text, as stored by the
// backend.
type Field struct {
	Name string
	Spec string
}

// IndexSpec describes an index. Name is the caller's name; the backend name
// is namespaced with the owning table (see IndexName).
type IndexSpec struct {
	Name    string
	Columns []string
	Kind    IndexKind
}

// IndexName returns the backend-wide index name for index on table. SQLite
// index names share one namespace per database, so the table is prefixed.
func IndexName(table, index string) string {
	return table + "_" + index
}

// TableShape is the live layout of a table, recomputed from the catalog on
// every call.
type TableShape struct {
	Name    string
	Fields  []Field
	Indexes map[string]IndexSpec // Keyed by backend index name.
}

// HasField reports whether the shape contains a column named name.
func (s TableShape) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns column names in declaration order.
func (s TableShape) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// TableOptions adjusts CreateTable.
type TableOptions struct {
	Temporary bool
}

// FieldType is an abstract column type handed to the type mapper, which
// compiles it to backend column specification text.
type FieldType struct {
	Kind      string // boolean, int, bigint, decimal, float, double, date, datetime, time, year, text, varchar, enum, set, id
	Precision int
	Default   string
	Null      bool
	Enums     []string
}

// Abstract field kinds understood by the type mapper.
const (
	KindBoolean  = "boolean"
	KindInt      = "int"
	KindBigInt   = "bigint"
	KindDecimal  = "decimal"
	KindFloat    = "float"
	KindDouble   = "double"
	KindDate     = "date"
	KindDatetime = "datetime"
	KindTime     = "time"
	KindYear     = "year"
	KindText     = "text"
	KindVarchar  = "varchar"
	KindEnum     = "enum"
	KindSet      = "set"
	KindID       = "id"
)

// AlterSet groups the changes applied by SchemaEditor.AlterTable.
type AlterSet struct {
	NewFields      []ColumnSpec
	AlteredFields  []ColumnSpec
	NewIndexes     []IndexSpec
	AlteredIndexes []IndexSpec
}
