package sqlite

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

func fileConfig(t *testing.T) types.Config {
	t.Helper()
	return types.Config{Path: filepath.Join(t.TempDir(), "data"), Database: "app"}
}

func TestDatabase_AttachDetach(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	d := NewDatabase(nil)

	require.NoError(t, d.Attach(ctx, cfg))
	assert.ErrorIs(t, d.Attach(ctx, cfg), types.ErrAlreadyAttached)

	info, err := os.Stat(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(cfg.Path, "app.sqlite"))
	assert.NoError(t, err, "database file created")
	assert.Equal(t, ".sqlite", d.Config().Extension)

	exec, err := d.Executor()
	require.NoError(t, err)
	_, err = exec.Exec(ctx, `CREATE TABLE "t" ("n" INTEGER)`)
	require.NoError(t, err)

	require.NoError(t, d.Detach())
	require.NoError(t, d.Detach(), "Detach is idempotent")

	_, err = d.Executor()
	assert.ErrorIs(t, err, types.ErrDetached)
	_, err = d.Schema()
	assert.ErrorIs(t, err, types.ErrDetached)
	_, err = d.Version(ctx)
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, d.SchemaUpdate(ctx, nil), types.ErrDetached)

	// Data survives a reconnect.
	require.NoError(t, d.Attach(ctx, cfg))
	defer d.Detach()
	schema, err := d.Schema()
	require.NoError(t, err)
	exists, err := schema.HasTable(ctx, "t")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDatabase_AttachRejectsInvalidConfig(t *testing.T) {
	d := NewDatabase(nil)
	err := d.Attach(context.Background(), types.Config{})
	assert.ErrorIs(t, err, types.ErrPathEmpty)

	err = d.Attach(context.Background(), types.Config{Path: t.TempDir(), Database: "a/b"})
	assert.ErrorIs(t, err, types.ErrInvalidDatabase)
}

func TestDatabase_LockingModeIsRemembered(t *testing.T) {
	ctx := context.Background()
	state := types.NewProcessState()
	cfg := fileConfig(t)

	d := NewDatabase(state)
	require.NoError(t, d.Attach(ctx, cfg))
	assert.Equal(t, "NORMAL", state.RememberedLockingMode())
	require.NoError(t, d.Detach())

	cfg.LockingMode = "EXCLUSIVE"
	require.NoError(t, d.Attach(ctx, cfg))
	assert.Equal(t, "EXCLUSIVE", state.RememberedLockingMode())
	require.NoError(t, d.Detach())

	// A later connect without a configured mode reuses the remembered one.
	other := NewDatabase(state)
	cfg.LockingMode = ""
	require.NoError(t, other.Attach(ctx, cfg))
	defer other.Detach()
	mode, err := other.conn.Pragma(ctx, "locking_mode")
	require.NoError(t, err)
	assert.Equal(t, "exclusive", mode)

	encoding, err := other.conn.Pragma(ctx, "encoding")
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", encoding)
}

func TestDatabase_SchemaUpdateLogs(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	d := NewDatabase(nil)
	d.SetLogger(log.New(&logs, "", 0))
	require.NoError(t, d.Attach(ctx, types.Config{Path: types.MemoryPath}))
	defer d.Detach()

	err := d.SchemaUpdate(ctx, func(ctx context.Context, schema types.SchemaEditor) error {
		return schema.CreateTable(ctx, "t", []types.ColumnSpec{{Name: "v", Type: "TEXT"}}, nil, types.TableOptions{})
	})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "[INFO] checking database integrity")
	assert.Contains(t, logs.String(), "[INFO] table t: created")

	ok, err := d.CheckAndRepair(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	version, err := d.Version(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, version)
	assert.Contains(t, []string{"purego", "cgo"}, Driver())
}

func TestDatabase_ValidateEnumValue(t *testing.T) {
	ctx := context.Background()
	d := NewDatabase(nil)
	require.NoError(t, d.Attach(ctx, types.Config{Path: types.MemoryPath}))
	defer d.Detach()

	err := d.SchemaUpdate(ctx, func(ctx context.Context, schema types.SchemaEditor) error {
		col, err := schema.ColumnFor(ctx, "Shirt", "Size", types.FieldType{Kind: types.KindEnum, Enums: []string{"S", "M", "L"}})
		if err != nil {
			return err
		}
		return schema.CreateTable(ctx, "Shirt", []types.ColumnSpec{col}, nil, types.TableOptions{})
	})
	require.NoError(t, err)

	assert.NoError(t, d.ValidateEnumValue(ctx, "Shirt", "Size", "M"))
	assert.ErrorIs(t, d.ValidateEnumValue(ctx, "Shirt", "Size", "XL"), types.ErrValueNotInDomain)

	schema, err := d.Schema()
	require.NoError(t, err)
	tables, err := schema.TableList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SQLiteEnums", "Shirt"}, tables)
}

func TestDatabase_DatabaseFiles(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	d := NewDatabase(nil)
	require.NoError(t, d.Configure(cfg))

	names, err := d.DatabaseList()
	require.NoError(t, err)
	assert.Equal(t, []string{}, names, "missing directory lists nothing")

	require.NoError(t, d.CreateDatabase("reports"))
	require.NoError(t, d.CreateDatabase("archive"))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Path, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.Path, "dir.sqlite"), 0o700))

	names, err = d.DatabaseList()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"reports", "archive"}, names)

	exists, err := d.DatabaseExists("reports")
	require.NoError(t, err)
	assert.True(t, exists)

	// Create replaces an existing database with an empty one.
	require.NoError(t, d.SelectDatabase(ctx, "reports", false))
	exec, err := d.Executor()
	require.NoError(t, err)
	_, err = exec.Exec(ctx, `CREATE TABLE "t" ("n" INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, d.CreateDatabase("reports"))
	_, err = d.Executor()
	assert.ErrorIs(t, err, types.ErrDetached, "recreating the attached database detaches")
	info, err := os.Stat(filepath.Join(cfg.Path, "reports.sqlite"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	require.NoError(t, d.DropDatabase("reports"))
	require.NoError(t, d.DropDatabase("reports"), "dropping a missing database is a no-op")
	exists, err = d.DatabaseExists("reports")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, d.CreateDatabase("../escape"), types.ErrInvalidDatabase)
}

func TestDatabase_SelectDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	d := NewDatabase(nil)
	require.NoError(t, d.Attach(ctx, cfg))

	err := d.SelectDatabase(ctx, "missing", false)
	assert.ErrorIs(t, err, types.ErrDatabaseNotFound)
	_, err = d.Executor()
	assert.ErrorIs(t, err, types.ErrDetached, "a failed select leaves the handle detached")

	require.NoError(t, d.SelectDatabase(ctx, "fresh", true))
	defer d.Detach()
	assert.Equal(t, "fresh", d.Config().Database)
	_, err = os.Stat(filepath.Join(cfg.Path, "fresh.sqlite"))
	assert.NoError(t, err)

	names, err := d.DatabaseList()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app", "fresh"}, names)
}

func TestDatabase_MemoryDatabases(t *testing.T) {
	ctx := context.Background()
	d := NewDatabase(nil)
	require.NoError(t, d.Attach(ctx, types.Config{Path: types.MemoryPath, Database: "scratch"}))
	defer d.Detach()

	names, err := d.DatabaseList()
	require.NoError(t, err)
	assert.Equal(t, []string{"scratch"}, names)

	assert.NoError(t, d.CreateDatabase("other"))
	assert.NoError(t, d.DropDatabase("scratch"))
	_, err = d.Executor()
	assert.NoError(t, err, "in-memory drop keeps the connection")
}
