package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlschema/internal/sqlite"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// Version is the sqlschema release.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/sqlschema"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sqlschema and SQLite versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := sqliteVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sqlschema v%s\nmodule: %s\nsqlite: %s (%s driver)\n",
				Version, modulePath, lib, sqlite.Driver())
			return nil
		},
	}
}

// sqliteVersion opens a throwaway in-memory database to ask the linked
// SQLite library for its version.
func sqliteVersion(ctx context.Context) (string, error) {
	db := sqlite.NewDatabase(types.NewProcessState())
	if err := db.Attach(ctx, types.Config{Path: types.MemoryPath}); err != nil {
		return "", err
	}
	defer db.Detach()
	return db.Version(ctx)
}
