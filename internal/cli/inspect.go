package cli

import (
	"context"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// columnOutput is the JSON form of a column.
type columnOutput struct {
	Name string `json:"name"`
	Spec string `json:"spec"`
}

// indexOutput is the JSON form of an index.
type indexOutput struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Kind    string   `json:"kind"`
}

// withSchema attaches the database and runs fn with its schema editor.
func withSchema(cmd *cobra.Command, fn func(ctx context.Context, schema types.SchemaEditor) error) error {
	db, err := attachDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Detach()
	schema, err := db.Schema()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), schema)
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd, func(ctx context.Context, schema types.SchemaEditor) error {
				tables, err := schema.TableList(ctx)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd, tables)
				}
				printLines(cmd, tables)
				return nil
			})
		},
	}
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "List the columns of a table in declaration order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd, func(ctx context.Context, schema types.SchemaEditor) error {
				shape, err := schema.Shape(ctx, args[0])
				if err != nil {
					return err
				}
				out := make([]columnOutput, len(shape.Fields))
				rows := make([][]string, len(shape.Fields))
				for i, f := range shape.Fields {
					out[i] = columnOutput{Name: f.Name, Spec: f.Spec}
					rows[i] = []string{f.Name, f.Spec}
				}
				if flags.jsonMode {
					return printJSON(cmd, out)
				}
				return printTable(cmd, []string{"NAME", "SPEC"}, rows)
			})
		},
	}
}

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes <table>",
		Short: "List the indexes of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd, func(ctx context.Context, schema types.SchemaEditor) error {
				shape, err := schema.Shape(ctx, args[0])
				if err != nil {
					return err
				}
				names := make([]string, 0, len(shape.Indexes))
				for name := range shape.Indexes {
					names = append(names, name)
				}
				slices.Sort(names)

				out := make([]indexOutput, len(names))
				rows := make([][]string, len(names))
				for i, name := range names {
					idx := shape.Indexes[name]
					out[i] = indexOutput{Name: name, Columns: idx.Columns, Kind: string(idx.Kind)}
					rows[i] = []string{name, string(idx.Kind), strings.Join(idx.Columns, ", ")}
				}
				if flags.jsonMode {
					return printJSON(cmd, out)
				}
				return printTable(cmd, []string{"NAME", "KIND", "COLUMNS"}, rows)
			})
		},
	}
}

func newEnumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enum <table> <column>",
		Short: "Print the recorded enum domain of a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd, func(ctx context.Context, schema types.SchemaEditor) error {
				values, err := schema.EnumValues(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd, values)
				}
				printLines(cmd, values)
				return nil
			})
		},
	}
}
