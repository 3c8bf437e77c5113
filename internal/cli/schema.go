package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlschema/internal/migrate"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the integrity check and optional vacuum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := attachDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Detach()

			ok, err := db.CheckAndRepair(cmd.Context())
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]bool{"ok": ok})
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "integrity check reported problems")
			return nil
		},
	}
}

// schemaUpdate attaches the database and runs fn inside a schema update.
func schemaUpdate(cmd *cobra.Command, fn func(ctx context.Context, schema types.SchemaEditor) error) error {
	db, err := attachDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Detach()
	return db.SchemaUpdate(cmd.Context(), fn)
}

func newAlterColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alter-column <table> <column> <spec>",
		Short: "Change a column definition, preserving rows and indexes",
		Long: "Rebuild the table with a new definition for one column. The definition is\n" +
			"SQLite column text without the name, e.g. \"VARCHAR(100) NOT NULL DEFAULT ''\".",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, column := args[0], args[1]
			err := schemaUpdate(cmd, func(ctx context.Context, schema types.SchemaEditor) error {
				return schema.AlterColumn(ctx, table, types.ColumnSpec{Name: column, Type: args[2]})
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Altered %s.%s\n", table, column)
			return nil
		},
	}
}

func newRenameColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-column <table> <old> <new>",
		Short: "Rename a column, preserving rows and indexes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, oldName, newName := args[0], args[1], args[2]
			err := schemaUpdate(cmd, func(ctx context.Context, schema types.SchemaEditor) error {
				return schema.RenameColumn(ctx, table, oldName, newName)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s.%s to %s\n", table, oldName, newName)
			return nil
		},
	}
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <schema.yaml>",
		Short: "Reconcile tables with a schema document",
		Long: "Create missing tables, add missing columns, alter changed columns, and\n" +
			"create or replace indexes so the database matches the YAML document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := migrate.Load(args[0])
			if err != nil {
				return err
			}
			db, err := attachDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Detach()

			changes, err := migrate.Apply(cmd.Context(), db, doc)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				if changes == nil {
					changes = []migrate.Change{}
				}
				return printJSON(cmd, changes)
			}
			if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}
			rows := make([][]string, len(changes))
			for i, c := range changes {
				rows[i] = []string{c.Table, c.Action, c.Target}
			}
			return printTable(cmd, []string{"TABLE", "ACTION", "TARGET"}, rows)
		},
	}
}
