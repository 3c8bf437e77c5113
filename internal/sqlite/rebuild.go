package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// obsoletePrefix marks a rename that retires a column. Indexes that
// reference a retired column are dropped rather than carried over.
const obsoletePrefix = "_obsolete_"

// Rebuild stages, in execution order. The rebuild hook receives them.
const (
	stageCreate  = "create"
	stageCopy    = "copy"
	stageDrop    = "drop"
	stageRename  = "rename"
	stageIndexes = "indexes"
)

// rebuildPlan describes a table rebuild: the new column layout, how to
// copy rows into it, and the indexes to recreate afterwards.
type rebuildPlan struct {
	table   string
	temp    string
	fields  []types.Field
	insert  []string // Quoted destination columns.
	selects []string // Source expressions, one per destination column.
	indexes map[string]types.IndexSpec
}

// AlterColumn changes the definition of an existing column by rebuilding
// table. Rows and explicit indexes are preserved. It returns an error
// wrapping types.ErrUnknownColumn when the column does not exist.
func (m *SchemaManager) AlterColumn(ctx context.Context, table string, column types.ColumnSpec) error {
	return m.withExclusiveLock(ctx, func(ctx context.Context) error {
		fields, err := m.FieldList(ctx, table)
		if err != nil {
			return err
		}
		pos := fieldIndex(fields, column.Name)
		if pos < 0 {
			return fmt.Errorf("alter column %s.%s: %w", table, column.Name, types.ErrUnknownColumn)
		}
		indexes, err := m.IndexList(ctx, table)
		if err != nil {
			return err
		}

		newFields := slices.Clone(fields)
		newFields[pos].Spec = column.Definition()

		cols := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = quoteIdent(f.Name)
		}
		plan := rebuildPlan{
			table:   table,
			temp:    table + "_alterfield_" + column.Name,
			fields:  newFields,
			insert:  cols,
			selects: cols,
			indexes: indexes,
		}
		if err := m.rebuild(ctx, plan); err != nil {
			return fmt.Errorf("alter column %s.%s: %w", table, column.Name, err)
		}
		m.alterationMessage("field %s.%s: changed to %s (from %s)", table, column.Name, column.Definition(), fields[pos].Spec)
		return nil
	})
}

// RenameColumn renames oldName to newName by rebuilding table. Indexes are
// carried over with the column renamed; renaming to an "_obsolete_" name
// drops the indexes that referenced the column.
func (m *SchemaManager) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	return m.withExclusiveLock(ctx, func(ctx context.Context) error {
		fields, err := m.FieldList(ctx, table)
		if err != nil {
			return err
		}
		if fieldIndex(fields, oldName) < 0 {
			return fmt.Errorf("rename column %s.%s: %w", table, oldName, types.ErrUnknownColumn)
		}
		indexes, err := m.IndexList(ctx, table)
		if err != nil {
			return err
		}

		newFields := make([]types.Field, len(fields))
		insert := make([]string, len(fields))
		selects := make([]string, len(fields))
		for i, f := range fields {
			newFields[i] = f
			insert[i] = quoteIdent(f.Name)
			selects[i] = quoteIdent(f.Name)
			if strings.EqualFold(f.Name, oldName) {
				newFields[i].Name = newName
				insert[i] = quoteIdent(newName)
				selects[i] = quoteIdent(f.Name) + " AS " + quoteIdent(newName)
			}
		}
		plan := rebuildPlan{
			table:   table,
			temp:    table + "_renamefield_" + oldName,
			fields:  newFields,
			insert:  insert,
			selects: selects,
			indexes: renameIndexColumns(indexes, oldName, newName),
		}
		if err := m.rebuild(ctx, plan); err != nil {
			return fmt.Errorf("rename column %s.%s: %w", table, oldName, err)
		}
		m.alterationMessage("field %s.%s: renamed to %s", table, oldName, newName)
		return nil
	})
}

// renameIndexColumns maps index columns from oldName to newName. An index
// that would lose a column is left out.
func renameIndexColumns(indexes map[string]types.IndexSpec, oldName, newName string) map[string]types.IndexSpec {
	obsolete := strings.HasPrefix(strings.ToLower(newName), obsoletePrefix)
	out := make(map[string]types.IndexSpec, len(indexes))
	for name, idx := range indexes {
		columns := make([]string, 0, len(idx.Columns))
		for _, c := range idx.Columns {
			switch {
			case !strings.EqualFold(c, oldName):
				columns = append(columns, c)
			case !obsolete:
				columns = append(columns, newName)
			}
		}
		if len(columns) != len(idx.Columns) {
			continue
		}
		idx.Columns = columns
		out[name] = idx
	}
	return out
}

// rebuild copies table into a new table with the planned layout, swaps it
// into place and recreates the indexes, all in one transaction.
func (m *SchemaManager) rebuild(ctx context.Context, plan rebuildPlan) error {
	temporary, err := m.isTemporary(ctx, plan.table)
	if err != nil {
		return err
	}
	create := "CREATE TABLE"
	if temporary {
		create = "CREATE TEMPORARY TABLE"
	}

	defs := make([]string, len(plan.fields))
	for i, f := range plan.fields {
		defs[i] = strings.TrimSpace(quoteIdent(f.Name) + " " + f.Spec)
	}
	tmp, table := quoteIdent(plan.temp), quoteIdent(plan.table)
	steps := []struct {
		stage string
		query string
	}{
		{"", "DROP TABLE IF EXISTS " + tmp},
		{stageCreate, fmt.Sprintf("%s %s (%s)", create, tmp, strings.Join(defs, ","))},
		{stageCopy, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			tmp, strings.Join(plan.insert, ","), strings.Join(plan.selects, ","), table)},
		{stageDrop, "DROP TABLE " + table},
		{stageRename, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, table)},
	}

	return m.conn.WithTransaction(ctx, func(ctx context.Context) error {
		for _, step := range steps {
			if err := m.ddl(ctx, step.query); err != nil {
				return err
			}
			if err := m.runRebuildHook(step.stage); err != nil {
				return err
			}
		}

		names := make([]string, 0, len(plan.indexes))
		for name := range plan.indexes {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if err := m.createIndex(ctx, plan.table, name, plan.indexes[name]); err != nil {
				return err
			}
		}
		return m.runRebuildHook(stageIndexes)
	})
}

func (m *SchemaManager) runRebuildHook(stage string) error {
	if m.rebuildHook == nil || stage == "" {
		return nil
	}
	return m.rebuildHook(stage)
}

// fieldIndex finds name in fields. SQLite identifiers are case-insensitive.
func fieldIndex(fields []types.Field, name string) int {
	for i, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}
