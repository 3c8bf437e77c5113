package migrate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// Change actions reported by Apply.
const (
	ActionCreateTable  = "create table"
	ActionRenameColumn = "rename column"
	ActionAddColumn    = "add column"
	ActionAlterColumn  = "alter column"
	ActionCreateIndex  = "create index"
	ActionAlterIndex   = "alter index"
)

// Change is one schema change made by Apply.
type Change struct {
	Table  string `json:"table"`
	Action string `json:"action"`
	Target string `json:"target"`
}

// Apply reconciles db with doc inside one schema update and returns the
// changes made, in order. Tables and columns missing from doc are left
// untouched.
func Apply(ctx context.Context, db types.Database, doc Document) ([]Change, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	var changes []Change
	err := db.SchemaUpdate(ctx, func(ctx context.Context, schema types.SchemaEditor) error {
		for _, t := range doc.Tables {
			tc, err := reconcile(ctx, schema, t)
			changes = append(changes, tc...)
			if err != nil {
				return fmt.Errorf("table %s: %w", t.Name, err)
			}
		}
		return nil
	})
	return changes, err
}

func reconcile(ctx context.Context, schema types.SchemaEditor, t Table) ([]Change, error) {
	columns, err := compileColumns(ctx, schema, t)
	if err != nil {
		return nil, err
	}
	indexes := make([]types.IndexSpec, len(t.Indexes))
	for i, idx := range t.Indexes {
		indexes[i] = idx.spec()
	}

	exists, err := schema.HasTable(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	if !exists {
		opts := types.TableOptions{Temporary: t.Temporary}
		if err := schema.CreateTable(ctx, t.Name, columns, indexes, opts); err != nil {
			return nil, err
		}
		return []Change{{Table: t.Name, Action: ActionCreateTable, Target: t.Name}}, nil
	}

	var changes []Change
	shape, err := schema.Shape(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	for _, r := range t.Renames {
		if !shape.HasField(r.From) || shape.HasField(r.To) {
			continue
		}
		if err := schema.RenameColumn(ctx, t.Name, r.From, r.To); err != nil {
			return changes, err
		}
		changes = append(changes, Change{Table: t.Name, Action: ActionRenameColumn, Target: r.From + " -> " + r.To})
	}
	if len(changes) > 0 {
		if shape, err = schema.Shape(ctx, t.Name); err != nil {
			return changes, err
		}
	}

	set, planned := plan(t.Name, shape, columns, indexes)
	if len(planned) == 0 {
		return changes, nil
	}
	if err := schema.AlterTable(ctx, t.Name, set); err != nil {
		return changes, err
	}
	return append(changes, planned...), nil
}

// compileColumns resolves every declared column to a ColumnSpec.
func compileColumns(ctx context.Context, schema types.SchemaEditor, t Table) ([]types.ColumnSpec, error) {
	columns := make([]types.ColumnSpec, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Type != "" {
			columns = append(columns, types.ColumnSpec{Name: c.Name, Type: c.Type, NotNull: c.NotNull, Default: c.Default})
			continue
		}
		spec, err := schema.ColumnFor(ctx, t.Name, c.Name, c.fieldType())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		columns = append(columns, spec)
	}
	return columns, nil
}

// plan compares the live shape with the declared columns and indexes.
func plan(table string, shape types.TableShape, columns []types.ColumnSpec, indexes []types.IndexSpec) (types.AlterSet, []Change) {
	var (
		set     types.AlterSet
		changes []Change
	)
	live := make(map[string]string, len(shape.Fields))
	for _, f := range shape.Fields {
		live[f.Name] = f.Spec
	}
	for _, c := range columns {
		spec, ok := live[c.Name]
		switch {
		case !ok:
			set.NewFields = append(set.NewFields, c)
			changes = append(changes, Change{Table: table, Action: ActionAddColumn, Target: c.Name})
		case !sameSpec(spec, c.Definition()):
			set.AlteredFields = append(set.AlteredFields, c)
			changes = append(changes, Change{Table: table, Action: ActionAlterColumn, Target: c.Name})
		}
	}
	for _, idx := range indexes {
		current, ok := shape.Indexes[types.IndexName(table, idx.Name)]
		switch {
		case !ok:
			set.NewIndexes = append(set.NewIndexes, idx)
			changes = append(changes, Change{Table: table, Action: ActionCreateIndex, Target: idx.Name})
		case current.Kind != idx.Kind || !slices.Equal(current.Columns, idx.Columns):
			set.AlteredIndexes = append(set.AlteredIndexes, idx)
			changes = append(changes, Change{Table: table, Action: ActionAlterIndex, Target: idx.Name})
		}
	}
	return set, changes
}

// sameSpec compares column specifications ignoring case and spacing.
func sameSpec(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
