package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// identitySpec is the definition of the synthesized identity column.
const identitySpec = "INTEGER PRIMARY KEY AUTOINCREMENT"

// SchemaManager creates and evolves tables on one connection. SQLite can
// only create and drop tables, add columns, and create or drop indexes, so
// column alterations and renames rebuild the table.
type SchemaManager struct {
	conn   *Connector
	enums  *EnumRegistry
	state  *types.ProcessState
	cfg    types.Config
	logger *log.Logger

	// lockDepth counts nested withExclusiveLock scopes.
	lockDepth int

	// rebuildHook, when set, runs after each rebuild stage. An error aborts
	// the rebuild.
	rebuildHook func(stage string) error
}

// NewSchemaManager returns a SchemaManager over conn. A nil logger uses
// log.Default().
func NewSchemaManager(conn *Connector, enums *EnumRegistry, state *types.ProcessState, cfg types.Config, logger *log.Logger) *SchemaManager {
	if logger == nil {
		logger = log.Default()
	}
	return &SchemaManager{conn: conn, enums: enums, state: state, cfg: cfg, logger: logger}
}

// ddl runs a schema statement. Backend failures are reported as KindSchema.
func (m *SchemaManager) ddl(ctx context.Context, query string) error {
	_, err := m.conn.Exec(ctx, query)
	if de, ok := types.AsDatabaseError(err); ok && de.Kind == types.KindGeneric {
		de.Kind = types.KindSchema
	}
	return err
}

func (m *SchemaManager) alterationMessage(format string, args ...any) {
	m.logger.Printf("[INFO] "+format, args...)
}

// CreateTable creates table with columns and indexes. An identity column
// named ID is added first unless columns already define one.
func (m *SchemaManager) CreateTable(ctx context.Context, table string, columns []types.ColumnSpec, indexes []types.IndexSpec, opts types.TableOptions) error {
	defs := make([]string, 0, len(columns)+1)
	if !hasColumn(columns, types.IdentityColumn) {
		defs = append(defs, quoteIdent(types.IdentityColumn)+" "+identitySpec)
	}
	for _, c := range columns {
		defs = append(defs, strings.TrimSpace(quoteIdent(c.Name)+" "+c.Definition()))
	}

	create := "CREATE TABLE"
	if opts.Temporary {
		create = "CREATE TEMPORARY TABLE"
	}
	q := fmt.Sprintf("%s %s (\n\t%s\n)", create, quoteIdent(table), strings.Join(defs, ",\n\t"))
	if err := m.ddl(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	m.alterationMessage("table %s: created", table)

	for _, idx := range indexes {
		if err := m.CreateIndex(ctx, table, idx); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(columns []types.ColumnSpec, name string) bool {
	for _, c := range columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// AddColumn appends column to table.
func (m *SchemaManager) AddColumn(ctx context.Context, table string, column types.ColumnSpec) error {
	q := fmt.Sprintf("ALTER TABLE %s ADD %s %s", quoteIdent(table), quoteIdent(column.Name), column.Definition())
	if err := m.ddl(ctx, strings.TrimSpace(q)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column.Name, err)
	}
	m.alterationMessage("field %s.%s: created as %s", table, column.Name, column.Definition())
	return nil
}

// RenameTable renames oldName to newName.
func (m *SchemaManager) RenameTable(ctx context.Context, oldName, newName string) error {
	q := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(oldName), quoteIdent(newName))
	if err := m.ddl(ctx, q); err != nil {
		return fmt.Errorf("rename table %s: %w", oldName, err)
	}
	m.alterationMessage("table %s: renamed to %s", oldName, newName)
	return nil
}

// CreateIndex creates index on table under the namespaced name
// types.IndexName(table, index.Name). Existing indexes are left alone.
func (m *SchemaManager) CreateIndex(ctx context.Context, table string, index types.IndexSpec) error {
	return m.createIndex(ctx, table, types.IndexName(table, index.Name), index)
}

// createIndex creates index under the exact backend name.
func (m *SchemaManager) createIndex(ctx context.Context, table, name string, index types.IndexSpec) error {
	unique := ""
	if index.Kind.Normalize() == types.IndexUnique {
		unique = "UNIQUE "
	}
	q := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, quoteIdent(name), quoteIdent(table), quoteIdents(index.Columns))
	if err := m.ddl(ctx, q); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// AlterIndex replaces index on table.
func (m *SchemaManager) AlterIndex(ctx context.Context, table string, index types.IndexSpec) error {
	if err := m.DropIndex(ctx, table, index.Name); err != nil {
		return err
	}
	if err := m.CreateIndex(ctx, table, index); err != nil {
		return err
	}
	m.alterationMessage("index %s.%s: changed", table, index.Name)
	return nil
}

// DropIndex drops index from table if it exists.
func (m *SchemaManager) DropIndex(ctx context.Context, table, index string) error {
	name := types.IndexName(table, index)
	if err := m.ddl(ctx, "DROP INDEX IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

// DropTable drops table if it exists. Its enum domains stay in the catalog.
func (m *SchemaManager) DropTable(ctx context.Context, table string) error {
	if err := m.ddl(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// ClearTable deletes every row of table. The enum catalog is never cleared.
func (m *SchemaManager) ClearTable(ctx context.Context, table string) error {
	if table == EnumCatalog {
		return nil
	}
	if _, err := m.conn.Exec(ctx, "DELETE FROM "+quoteIdent(table)); err != nil {
		return fmt.Errorf("clear table %s: %w", table, err)
	}
	return nil
}

// AlterTable applies changes in order: new columns, altered columns, new
// indexes, altered indexes. Altered columns that do not exist are skipped.
func (m *SchemaManager) AlterTable(ctx context.Context, table string, changes types.AlterSet) error {
	for _, c := range changes.NewFields {
		if err := m.AddColumn(ctx, table, c); err != nil {
			return err
		}
	}
	for _, c := range changes.AlteredFields {
		err := m.AlterColumn(ctx, table, c)
		if errors.Is(err, types.ErrUnknownColumn) {
			m.alterationMessage("field %s.%s: skipped, no such column", table, c.Name)
			continue
		}
		if err != nil {
			return err
		}
	}
	for _, idx := range changes.NewIndexes {
		if err := m.CreateIndex(ctx, table, idx); err != nil {
			return err
		}
	}
	for _, idx := range changes.AlteredIndexes {
		if err := m.AlterIndex(ctx, table, idx); err != nil {
			return err
		}
	}
	return nil
}

// EnumValues returns the recorded domain of table.column.
func (m *SchemaManager) EnumValues(ctx context.Context, table, column string) ([]string, error) {
	return m.enums.Lookup(ctx, table, column)
}

// withExclusiveLock runs fn with the connection in exclusive locking mode.
// The process locking mode is restored on every exit path. Nested calls
// share the outermost scope.
func (m *SchemaManager) withExclusiveLock(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	m.lockDepth++
	defer func() { m.lockDepth-- }()
	if m.lockDepth > 1 {
		return fn(ctx)
	}

	if err := m.conn.SetPragma(ctx, "locking_mode", "EXCLUSIVE"); err != nil {
		return fmt.Errorf("enter exclusive locking mode: %w", err)
	}
	defer func() {
		restore := m.state.LockingMode()
		if rerr := m.conn.SetPragma(context.WithoutCancel(ctx), "locking_mode", restore); rerr != nil {
			err = errors.Join(err, fmt.Errorf("restore locking mode %s: %w", restore, rerr))
		}
	}()
	return fn(ctx)
}

// SchemaUpdate runs fn in exclusive locking mode after the one-time
// integrity check and an enum cache flush.
func (m *SchemaManager) SchemaUpdate(ctx context.Context, fn func(ctx context.Context, schema types.SchemaEditor) error) error {
	return m.withExclusiveLock(ctx, func(ctx context.Context) error {
		if _, err := m.CheckAndRepair(ctx); err != nil {
			return err
		}
		m.enums.Flush()
		return fn(ctx, m)
	})
}
