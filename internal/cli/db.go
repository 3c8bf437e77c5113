package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage database files",
		Long:  "List, create, drop, and test for databases in the database directory.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List databases",
			Args:  cobra.NoArgs,
			RunE:  runDBList,
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty database, replacing any existing one",
			Args:  cobra.ExactArgs(1),
			RunE:  runDBCreate,
		},
		&cobra.Command{
			Use:   "drop <name>",
			Short: "Delete a database file",
			Args:  cobra.ExactArgs(1),
			RunE:  runDBDrop,
		},
		&cobra.Command{
			Use:   "exists <name>",
			Short: "Report whether a database exists",
			Args:  cobra.ExactArgs(1),
			RunE:  runDBExists,
		},
	)
	return cmd
}

func runDBList(cmd *cobra.Command, args []string) error {
	db, err := configureDatabase(cmd)
	if err != nil {
		return err
	}
	names, err := db.DatabaseList()
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, names)
	}
	printLines(cmd, names)
	return nil
}

func runDBCreate(cmd *cobra.Command, args []string) error {
	db, err := configureDatabase(cmd)
	if err != nil {
		return err
	}
	if err := db.CreateDatabase(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created database %s\n", args[0])
	return nil
}

func runDBDrop(cmd *cobra.Command, args []string) error {
	db, err := configureDatabase(cmd)
	if err != nil {
		return err
	}
	if err := db.DropDatabase(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dropped database %s\n", args[0])
	return nil
}

func runDBExists(cmd *cobra.Command, args []string) error {
	db, err := configureDatabase(cmd)
	if err != nil {
		return err
	}
	exists, err := db.DatabaseExists(args[0])
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, map[string]bool{"exists": exists})
	}
	fmt.Fprintln(cmd.OutOrStdout(), exists)
	return nil
}
