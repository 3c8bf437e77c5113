// Package migrate reconciles live tables with a declarative schema document.
// A document lists tables with their columns and indexes; Apply creates
// what is missing and alters what differs through a types.SchemaEditor.
package migrate

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// Document validation errors.
var (
	ErrNoTables        = errors.New("schema document has no tables")
	ErrTableNameEmpty  = errors.New("table name must not be empty")
	ErrColumnNameEmpty = errors.New("column name must not be empty")
	ErrColumnType      = errors.New("column needs exactly one of kind or type")
	ErrIndexColumns    = errors.New("index must list at least one column")
	ErrDuplicateName   = errors.New("duplicate name")
)

// Document is a schema document.
type Document struct {
	Tables []Table `yaml:"tables"`
}

// Table declares one table.
type Table struct {
	Name      string   `yaml:"name"`
	Temporary bool     `yaml:"temporary,omitempty"`
	Columns   []Column `yaml:"columns"`
	Indexes   []Index  `yaml:"indexes,omitempty"`
	Renames   []Rename `yaml:"renames,omitempty"`
}

// Column declares a column either by abstract Kind (compiled by the type
// mapper) or by raw SQLite Type text.
type Column struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind,omitempty"`
	Type      string   `yaml:"type,omitempty"`
	Precision int      `yaml:"precision,omitempty"`
	Null      bool     `yaml:"null,omitempty"`
	NotNull   bool     `yaml:"not_null,omitempty"`
	Default   string   `yaml:"default,omitempty"`
	Values    []string `yaml:"values,omitempty"`
}

// Index declares an index. Kind is "index" (the default) or "unique".
type Index struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Kind    string   `yaml:"kind,omitempty"`
}

// Rename moves an existing column's data to a new name before the columns
// are reconciled.
type Rename struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Load reads and validates the schema document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read schema document: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML schema document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse schema document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks the document for structural errors.
func (d Document) Validate() error {
	if len(d.Tables) == 0 {
		return ErrNoTables
	}
	tables := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if t.Name == "" {
			return ErrTableNameEmpty
		}
		if tables[t.Name] {
			return fmt.Errorf("%w: table %s", ErrDuplicateName, t.Name)
		}
		tables[t.Name] = true
		if err := t.validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (t Table) validate() error {
	columns := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return ErrColumnNameEmpty
		}
		if columns[c.Name] {
			return fmt.Errorf("%w: column %s", ErrDuplicateName, c.Name)
		}
		columns[c.Name] = true
		if (c.Kind == "") == (c.Type == "") {
			return fmt.Errorf("column %s: %w", c.Name, ErrColumnType)
		}
	}
	indexes := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if idx.Name == "" || indexes[idx.Name] {
			return fmt.Errorf("%w: index %q", ErrDuplicateName, idx.Name)
		}
		indexes[idx.Name] = true
		if len(idx.Columns) == 0 {
			return fmt.Errorf("index %s: %w", idx.Name, ErrIndexColumns)
		}
	}
	return nil
}

// fieldType returns the abstract type of a Kind column.
func (c Column) fieldType() types.FieldType {
	return types.FieldType{
		Kind:      c.Kind,
		Precision: c.Precision,
		Default:   c.Default,
		Null:      c.Null,
		Enums:     c.Values,
	}
}

// spec returns the IndexSpec of idx.
func (idx Index) spec() types.IndexSpec {
	return types.IndexSpec{
		Name:    idx.Name,
		Columns: idx.Columns,
		Kind:    types.IndexKind(idx.Kind).Normalize(),
	}
}
