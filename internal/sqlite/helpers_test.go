package sqlite

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// openMemory returns a Connector over a fresh in-memory database, closed
// when the test ends.
func openMemory(t *testing.T) *Connector {
	t.Helper()
	c, err := Open(context.Background(), types.MemoryPath, "test")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// openFile returns a Connector over a fresh database file in a temp dir.
// In-memory databases always report exclusive locking, so tests of the
// locking mode need a file.
func openFile(t *testing.T) (*Connector, types.Config) {
	t.Helper()
	cfg := types.Config{Path: t.TempDir(), Database: "test"}.WithDefaults()
	c, err := Open(context.Background(), cfg.FilePath(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, cfg
}

// newTestSchema returns a SchemaManager over a fresh in-memory database
// and the buffer its logger writes to.
func newTestSchema(t *testing.T) (*SchemaManager, *bytes.Buffer) {
	t.Helper()
	conn := openMemory(t)
	cfg := types.Config{Path: types.MemoryPath}.WithDefaults()
	return schemaOver(conn, cfg)
}

// newFileSchema is newTestSchema over a database file.
func newFileSchema(t *testing.T) (*SchemaManager, *bytes.Buffer) {
	t.Helper()
	return schemaOver(openFile(t))
}

func schemaOver(conn *Connector, cfg types.Config) (*SchemaManager, *bytes.Buffer) {
	var logs bytes.Buffer
	m := NewSchemaManager(conn, NewEnumRegistry(conn), types.NewProcessState(), cfg, log.New(&logs, "", 0))
	return m, &logs
}

// mustExec runs query and fails the test on error.
func mustExec(t *testing.T, c *Connector, query string, params ...any) types.ExecResult {
	t.Helper()
	res, err := c.Exec(context.Background(), query, params...)
	require.NoError(t, err, query)
	return res
}

// queryRows runs query and returns every row.
func queryRows(t *testing.T, c *Connector, query string, params ...any) []types.Row {
	t.Helper()
	res, err := c.PreparedQuery(context.Background(), query, params...)
	require.NoError(t, err, query)
	rows, err := collect(res)
	require.NoError(t, err, query)
	return rows
}

// columnValues returns the text of column for every row.
func columnValues(rows []types.Row, column string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.String(column)
	}
	return out
}
