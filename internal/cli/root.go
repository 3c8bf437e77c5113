// Package cli implements the sqlschema command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/sqlschema/internal/migrate"
	"github.com/mesh-intelligence/sqlschema/internal/paths"
	"github.com/mesh-intelligence/sqlschema/internal/sqlite"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	path      string
	database  string
	memory    bool
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// settings holds config.yaml as loaded by PersistentPreRunE.
var settings *viper.Viper

// NewRootCmd creates the top-level "sqlschema" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	settings = nil

	root := &cobra.Command{
		Use:   "sqlschema",
		Short: "Inspect and evolve SQLite schemas",
		Long: "sqlschema manages SQLite database files: it lists and inspects tables,\n" +
			"alters and renames columns by rebuilding tables, applies declarative\n" +
			"schema documents, and runs parameterized queries.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadSettings,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.path, "path", "", "database directory (default: $(CWD)/.sqlitedb)")
	root.PersistentFlags().StringVar(&flags.database, "database", "", "database name (default: database)")
	root.PersistentFlags().BoolVar(&flags.memory, "memory", false, "use an in-memory database")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log schema alterations to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newDBCmd())
	root.AddCommand(newTablesCmd())
	root.AddCommand(newColumnsCmd())
	root.AddCommand(newIndexesCmd())
	root.AddCommand(newEnumCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newAlterColumnCmd())
	root.AddCommand(newRenameColumnCmd())
	root.AddCommand(newApplyCmd())
	root.AddCommand(newQueryCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to exitUserError for mistakes the user can fix
// and exitSysError for everything else.
func exitCode(err error) int {
	userErrors := []error{
		types.ErrDatabaseNotFound,
		types.ErrTableNotFound,
		types.ErrUnknownColumn,
		types.ErrUnknownFieldKind,
		types.ErrDuplicateEntry,
		types.ErrUnsupportedParameterType,
		types.ErrSchema,
		types.ErrPathEmpty,
		types.ErrInvalidDatabase,
		types.ErrLockingModeUnknown,
		migrate.ErrNoTables,
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// loadSettings loads .env from the working directory and config.yaml from
// the resolved configuration directory.
func loadSettings(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	settings = v
	return nil
}

// resolveConfig builds the database Config following the precedence
// flag > config.yaml > environment > default.
func resolveConfig() (types.Config, error) {
	v := settings
	if v == nil {
		v = viper.New()
	}

	path := types.MemoryPath
	if !flags.memory {
		var err error
		path, err = paths.ResolveDataDir(flags.path, v.GetString(cfgKeyPath))
		if err != nil {
			return types.Config{}, fmt.Errorf("resolve database path: %w", err)
		}
	}
	database := flags.database
	if database == "" {
		database = v.GetString(cfgKeyDatabase)
	}
	return types.Config{
		Path:        path,
		Database:    database,
		Extension:   v.GetString(cfgKeyExtension),
		LockingMode: v.GetString(cfgKeyLockingMode),
		Vacuum:      v.GetBool(cfgKeyVacuum),
	}.WithDefaults(), nil
}

// newDatabase returns a detached Database logging to stderr when verbose.
func newDatabase(cmd *cobra.Command) *sqlite.Database {
	db := sqlite.NewDatabase(types.NewProcessState())
	var w io.Writer = io.Discard
	if flags.verbose {
		w = cmd.ErrOrStderr()
	}
	db.SetLogger(log.New(w, "", 0))
	return db
}

// attachDatabase resolves the configuration and connects. The caller must
// defer db.Detach().
func attachDatabase(cmd *cobra.Command) (*sqlite.Database, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	db := newDatabase(cmd)
	if err := db.Attach(cmd.Context(), cfg); err != nil {
		return nil, fmt.Errorf("attach database: %w", err)
	}
	return db, nil
}

// configureDatabase resolves the configuration without connecting.
func configureDatabase(cmd *cobra.Command) (*sqlite.Database, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	db := newDatabase(cmd)
	if err := db.Configure(cfg); err != nil {
		return nil, err
	}
	return db, nil
}
