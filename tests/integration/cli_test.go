// CLI integration tests for sqlschema.
// Each test runs the built binary against its own config and database
// directory.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain builds the sqlschema binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "sqlschema-test-*")
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}
	binPath := filepath.Join(tmpDir, "sqlschema")
	SetBinary(binPath)

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/sqlschema")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		SetBuildErr(&BuildError{
			Err:    err,
			Output: string(output),
		})
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)

	os.Exit(code)
}

const personSchema = `tables:
  - name: Person
    columns:
      - name: Name
        kind: varchar
        precision: 100
      - name: Age
        kind: int
      - name: Role
        kind: enum
        values: [admin, member]
        default: member
    indexes:
      - name: name
        columns: [Name]
        kind: unique
`

func TestInit(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("init")
	assert.Contains(t, result.Stdout, "Initialized database")

	info, err := os.Stat(env.DataDir)
	require.NoError(t, err, "data directory not created")
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	_, err = os.Stat(filepath.Join(env.DataDir, "app.sqlite"))
	assert.NoError(t, err, "database file not created")
}

func TestDatabaseLifecycle(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("db", "list", "--json")
	assert.Equal(t, []string{}, ParseJSON[[]string](t, result.Stdout))

	env.MustRun("db", "create", "reports")
	env.MustRun("db", "create", "archive")

	result = env.MustRun("db", "list", "--json")
	assert.ElementsMatch(t, []string{"archive", "reports"}, ParseJSON[[]string](t, result.Stdout))

	result = env.MustRun("db", "exists", "reports", "--json")
	assert.Equal(t, map[string]bool{"exists": true}, ParseJSON[map[string]bool](t, result.Stdout))

	env.MustRun("db", "drop", "reports")
	result = env.MustRun("db", "exists", "reports")
	assert.Equal(t, "false", strings.TrimSpace(result.Stdout))

	// Dropping a missing database is not an error.
	env.MustRun("db", "drop", "reports")
}

func TestApplyCreatesAndIsIdempotent(t *testing.T) {
	env := NewTestEnv(t)
	schema := env.WriteFile("schema.yaml", personSchema)

	result := env.MustRun("apply", schema, "--json")
	changes := ParseJSON[[]map[string]string](t, result.Stdout)
	require.Len(t, changes, 1)
	assert.Equal(t, "create table", changes[0]["action"])

	result = env.MustRun("columns", "Person", "--json")
	columns := ParseJSON[[]Column](t, result.Stdout)
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"ID", "Name", "Age", "Role"}, names)

	result = env.MustRun("indexes", "Person", "--json")
	indexes := ParseJSON[[]Index](t, result.Stdout)
	require.Len(t, indexes, 1)
	assert.Equal(t, "Person_name", indexes[0].Name)
	assert.Equal(t, []string{"Name"}, indexes[0].Columns)
	assert.Equal(t, "unique", indexes[0].Kind)

	result = env.MustRun("enum", "Person", "Role", "--json")
	assert.Equal(t, []string{"admin", "member"}, ParseJSON[[]string](t, result.Stdout))

	result = env.MustRun("apply", schema, "--json")
	assert.Equal(t, []map[string]string{}, ParseJSON[[]map[string]string](t, result.Stdout))
}

func TestAlterColumnPreservesRowsAndIndexes(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("apply", env.WriteFile("schema.yaml", personSchema))
	env.MustRun("query", `INSERT INTO "Person" ("Name", "Age") VALUES (?, ?)`, "Ada", "36")
	env.MustRun("query", `INSERT INTO "Person" ("Name", "Age") VALUES (?, ?)`, "Grace", "45")

	env.MustRun("alter-column", "Person", "Name", "VARCHAR(200) COLLATE NOCASE")

	result := env.MustRun("query", `SELECT "Name", "Age" FROM "Person" ORDER BY "ID"`, "--json")
	rows := ParseJSON[[]map[string]any](t, result.Stdout)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0]["Name"])
	assert.EqualValues(t, 45, rows[1]["Age"])

	result = env.MustRun("columns", "Person", "--json")
	columns := ParseJSON[[]Column](t, result.Stdout)
	assert.Equal(t, "VARCHAR(200) COLLATE NOCASE", columns[1].Spec)

	result = env.MustRun("indexes", "Person", "--json")
	indexes := ParseJSON[[]Index](t, result.Stdout)
	require.Len(t, indexes, 1)
	assert.Equal(t, "Person_name", indexes[0].Name)
}

func TestRenameColumnRemapsIndexes(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("apply", env.WriteFile("schema.yaml", personSchema))
	env.MustRun("query", `INSERT INTO "Person" ("Name") VALUES (?)`, "Ada")

	env.MustRun("rename-column", "Person", "Name", "FullName")

	result := env.MustRun("query", `SELECT "FullName" FROM "Person"`, "--json")
	rows := ParseJSON[[]map[string]any](t, result.Stdout)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0]["FullName"])

	result = env.MustRun("indexes", "Person", "--json")
	indexes := ParseJSON[[]Index](t, result.Stdout)
	require.Len(t, indexes, 1)
	assert.Equal(t, []string{"FullName"}, indexes[0].Columns)

	env.MustRun("rename-column", "Person", "FullName", "_obsolete_FullName")
	result = env.MustRun("indexes", "Person", "--json")
	assert.Empty(t, ParseJSON[[]Index](t, result.Stdout))
}

func TestUnknownColumnIsUserError(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("apply", env.WriteFile("schema.yaml", personSchema))

	result := env.Run("rename-column", "Person", "Missing", "Other")
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "unknown column")
}

func TestDuplicateEntryIsClassified(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("apply", env.WriteFile("schema.yaml", personSchema))

	insert := `INSERT INTO "Person" ("ID", "Name") VALUES (?, ?)`
	env.MustRun("query", insert, "null", "Ada")

	result := env.Run("query", insert, "null", "Ada")
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, `duplicate entry "Ada" for Name`)
}

func TestQueryReportsExecResult(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("apply", env.WriteFile("schema.yaml", personSchema))

	result := env.MustRun("query", `INSERT INTO "Person" ("Name", "Age") VALUES (?, ?)`, "Ada", "36", "--json")
	out := ParseJSON[map[string]int64](t, result.Stdout)
	assert.Equal(t, int64(1), out["rows_affected"])
	assert.Equal(t, int64(1), out["last_insert_id"])

	result = env.MustRun("query", `SELECT COUNT(*) AS "n" FROM "Person" WHERE "Age" > ?`, "30")
	assert.Contains(t, result.Stdout, "1")
}

func TestCheck(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("init")

	result := env.MustRun("check", "--json")
	assert.Equal(t, map[string]bool{"ok": true}, ParseJSON[map[string]bool](t, result.Stdout))
}

func TestVersion(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("version")
	assert.Contains(t, result.Stdout, "sqlschema v")
	assert.Contains(t, result.Stdout, "sqlite: 3.")
}

func TestMemoryDatabaseListsConfiguredName(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("--memory", "db", "list", "--json")
	assert.Equal(t, []string{"app"}, ParseJSON[[]string](t, result.Stdout))
}
