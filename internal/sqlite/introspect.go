package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// TableList returns the user tables of the main and temp schemas, sorted
// by name. SQLite's internal tables are omitted.
func (m *SchemaManager) TableList(ctx context.Context) ([]string, error) {
	q := `SELECT "name" FROM "sqlite_master" WHERE "type" = ? AND "name" NOT LIKE 'sqlite\_%' ESCAPE '\'
		UNION SELECT "name" FROM "sqlite_temp_master" WHERE "type" = ? AND "name" NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY 1`
	res, err := m.conn.PreparedQuery(ctx, q, "table", "table")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	rows, err := collect(res)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, row.String("name"))
	}
	return tables, nil
}

// HasTable reports whether table exists in the main or temp schema.
func (m *SchemaManager) HasTable(ctx context.Context, table string) (bool, error) {
	_, ok, err := m.tableSQL(ctx, table)
	return ok, err
}

// tableSQL returns the stored CREATE TABLE statement for table.
func (m *SchemaManager) tableSQL(ctx context.Context, table string) (string, bool, error) {
	q := `SELECT "sql" FROM "sqlite_master" WHERE "type" = ? AND "name" = ?
		UNION ALL SELECT "sql" FROM "sqlite_temp_master" WHERE "type" = ? AND "name" = ?`
	row, ok, err := m.conn.Record(ctx, q, "table", table, "table", table)
	if err != nil {
		return "", false, fmt.Errorf("read table %s: %w", table, err)
	}
	return row.String("sql"), ok, nil
}

// isTemporary reports whether table lives in the temp schema.
func (m *SchemaManager) isTemporary(ctx context.Context, table string) (bool, error) {
	_, ok, err := m.conn.Record(ctx, `SELECT 1 FROM "sqlite_temp_master" WHERE "type" = ? AND "name" = ?`, "table", table)
	return ok, err
}

// FieldList returns the columns of table in declaration order. A missing
// table has no columns.
func (m *SchemaManager) FieldList(ctx context.Context, table string) ([]types.Field, error) {
	sql, ok, err := m.tableSQL(ctx, table)
	if err != nil || !ok {
		return nil, err
	}
	return ParseCreateTable(sql), nil
}

// IndexList returns the explicitly created indexes of table keyed by their
// backend name. Indexes SQLite creates for UNIQUE and PRIMARY KEY column
// constraints are omitted; a rebuild recreates those from the column
// definitions.
func (m *SchemaManager) IndexList(ctx context.Context, table string) (map[string]types.IndexSpec, error) {
	res, err := m.conn.Query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	rows, err := collect(res)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}

	indexes := make(map[string]types.IndexSpec, len(rows))
	for _, row := range rows {
		if origin := row.String("origin"); origin != "" && origin != "c" {
			continue
		}
		name := row.String("name")
		columns, err := m.indexColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		kind := types.IndexPlain
		if row.String("unique") == "1" {
			kind = types.IndexUnique
		}
		indexes[name] = types.IndexSpec{Name: name, Columns: columns, Kind: kind}
	}
	return indexes, nil
}

func (m *SchemaManager) indexColumns(ctx context.Context, index string) ([]string, error) {
	res, err := m.conn.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(index)))
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", index, err)
	}
	rows, err := collect(res)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", index, err)
	}
	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, strings.Trim(row.String("name"), `"`))
	}
	return columns, nil
}

// Shape returns the current columns and indexes of table.
func (m *SchemaManager) Shape(ctx context.Context, table string) (types.TableShape, error) {
	sql, ok, err := m.tableSQL(ctx, table)
	if err != nil {
		return types.TableShape{}, err
	}
	if !ok {
		return types.TableShape{}, fmt.Errorf("%w: %s", types.ErrTableNotFound, table)
	}
	indexes, err := m.IndexList(ctx, table)
	if err != nil {
		return types.TableShape{}, err
	}
	return types.TableShape{Name: table, Fields: ParseCreateTable(sql), Indexes: indexes}, nil
}
