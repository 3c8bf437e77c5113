package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlschema/internal/sqlite"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

func newMemoryDatabase(t *testing.T) *sqlite.Database {
	t.Helper()
	db := sqlite.NewDatabase(types.NewProcessState())
	require.NoError(t, db.Attach(context.Background(), types.Config{Path: types.MemoryPath}))
	t.Cleanup(func() { db.Detach() })
	return db
}

func actions(changes []Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Action + " " + c.Target
	}
	return out
}

func TestApply_CreatesThenConverges(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDatabase(t)
	doc, err := Parse([]byte(shopDoc))
	require.NoError(t, err)

	changes, err := Apply(ctx, db, doc)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Table: "Product", Action: ActionCreateTable, Target: "Product"}}, changes)

	schema, err := db.Schema()
	require.NoError(t, err)
	shape, err := schema.Shape(ctx, "Product")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Title", "Price", "Size", "Notes"}, shape.FieldNames())
	assert.Contains(t, shape.Indexes, "Product_title")

	values, err := schema.EnumValues(ctx, "Product", "Size")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M", "L"}, values)

	changes, err = Apply(ctx, db, doc)
	require.NoError(t, err)
	assert.Empty(t, changes, "a second apply changes nothing")
}

func TestApply_EvolvesExistingTable(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDatabase(t)

	initial := `tables:
  - name: Product
    columns:
      - {name: Name, type: TEXT}
      - {name: Price, type: REAL}
    indexes:
      - {name: title, columns: [Name]}
`
	doc, err := Parse([]byte(initial))
	require.NoError(t, err)
	_, err = Apply(ctx, db, doc)
	require.NoError(t, err)

	exec, err := db.Executor()
	require.NoError(t, err)
	_, err = exec.Exec(ctx, `INSERT INTO "Product" ("Name", "Price") VALUES (?, ?)`, "Lamp", 19.5)
	require.NoError(t, err)

	evolved := `tables:
  - name: Product
    columns:
      - {name: Title, type: TEXT}
      - {name: Price, type: "NUMERIC NOT NULL DEFAULT 0"}
      - {name: Stock, kind: int}
    indexes:
      - {name: title, columns: [Title], kind: unique}
      - {name: stock, columns: [Stock]}
    renames:
      - {from: Name, to: Title}
`
	doc, err = Parse([]byte(evolved))
	require.NoError(t, err)
	changes, err := Apply(ctx, db, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"rename column Name -> Title",
		"alter column Price",
		"add column Stock",
		"alter index title",
		"create index stock",
	}, actions(changes))

	schema, err := db.Schema()
	require.NoError(t, err)
	shape, err := schema.Shape(ctx, "Product")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Title", "Price", "Stock"}, shape.FieldNames())
	assert.Equal(t, types.IndexUnique, shape.Indexes["Product_title"].Kind)
	assert.Equal(t, []string{"Title"}, shape.Indexes["Product_title"].Columns)

	res, err := exec.PreparedQuery(ctx, `SELECT "Title", "Price", "Stock" FROM "Product"`)
	require.NoError(t, err)
	require.True(t, res.Next())
	row := res.Row()
	require.NoError(t, res.Close())
	assert.Equal(t, "Lamp", row.String("Title"))
	assert.Equal(t, "19.5", row.String("Price"))
	assert.Equal(t, "0", row.String("Stock"))

	changes, err = Apply(ctx, db, doc)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApply_RejectsInvalidDocument(t *testing.T) {
	db := newMemoryDatabase(t)
	_, err := Apply(context.Background(), db, Document{})
	assert.ErrorIs(t, err, ErrNoTables)
}

func TestApply_UnknownKindFails(t *testing.T) {
	db := newMemoryDatabase(t)
	doc := Document{Tables: []Table{{Name: "t", Columns: []Column{{Name: "c", Kind: "geometry"}}}}}
	_, err := Apply(context.Background(), db, doc)
	assert.ErrorIs(t, err, types.ErrUnknownFieldKind)
}

func TestSameSpec(t *testing.T) {
	assert.True(t, sameSpec("VARCHAR(255)  collate nocase", "VARCHAR(255) COLLATE NOCASE"))
	assert.False(t, sameSpec("TEXT", "TEXT NOT NULL"))
}
