// Package sqlite implements the SQLite driver: a single-connection statement
// executor, parameter binding, error classification, enum emulation and a
// schema editor that rebuilds tables where SQLite has no ALTER support.
package sqlite

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mesh-intelligence/sqlschema/internal/paths"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// Database implements types.Database for SQLite.
type Database struct {
	mu     sync.Mutex
	state  *types.ProcessState
	logger *log.Logger
	cfg    types.Config
	conn   *Connector
	schema *SchemaManager
}

// NewDatabase returns a detached Database sharing state. A nil state gets a
// fresh ProcessState.
func NewDatabase(state *types.ProcessState) *Database {
	if state == nil {
		state = types.NewProcessState()
	}
	return &Database{state: state, logger: log.Default()}
}

// SetLogger replaces the logger used for schema alteration messages. It
// takes effect on the next Attach.
func (d *Database) SetLogger(logger *log.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = logger
}

// Attach connects using cfg. Empty Database and Extension take their
// defaults. A file-backed database directory is created if missing.
func (d *Database) Attach(ctx context.Context, cfg types.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return types.ErrAlreadyAttached
	}
	return d.attach(ctx, cfg)
}

func (d *Database) attach(ctx context.Context, cfg types.Config) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.LivesInMemory() {
		if err := paths.EnsureSecureDir(cfg.Path); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := Open(ctx, cfg.FilePath(), cfg.Database)
	if err != nil {
		return err
	}
	if err := d.applyPragmas(ctx, conn, cfg); err != nil {
		conn.Close()
		return err
	}

	d.cfg = cfg
	d.conn = conn
	d.schema = NewSchemaManager(conn, NewEnumRegistry(conn), d.state, cfg, d.logger)
	return nil
}

// applyPragmas sets the connection defaults. The locking mode comes from
// cfg, else from the mode remembered by an earlier connect, else from the
// backend; the result is remembered for later reconnects.
func (d *Database) applyPragmas(ctx context.Context, conn *Connector, cfg types.Config) error {
	if err := conn.SetPragma(ctx, "encoding", `"UTF-8"`); err != nil {
		return fmt.Errorf("set encoding: %w", err)
	}

	mode := cfg.LockingMode
	if mode == "" {
		mode = d.state.RememberedLockingMode()
	}
	if mode == "" {
		current, err := conn.Pragma(ctx, "locking_mode")
		if err != nil {
			return fmt.Errorf("read locking mode: %w", err)
		}
		mode = strings.ToUpper(current)
	} else if err := conn.SetPragma(ctx, "locking_mode", mode); err != nil {
		return fmt.Errorf("set locking mode: %w", err)
	}
	d.state.RememberLockingMode(mode)
	return nil
}

// Configure validates cfg and keeps it for the database file operations
// without connecting. It fails with ErrAlreadyAttached when attached.
func (d *Database) Configure(cfg types.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return types.ErrAlreadyAttached
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	d.cfg = cfg
	return nil
}

// Detach closes the connection. Idempotent.
func (d *Database) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detach()
}

func (d *Database) detach() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	d.schema = nil
	return err
}

// Executor returns the statement executor of the held connection.
func (d *Database) Executor() (types.Executor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, types.ErrDetached
	}
	return d.conn, nil
}

// Schema returns the schema editor of the held connection.
func (d *Database) Schema() (types.SchemaEditor, error) {
	sm, err := d.schemaManager()
	if err != nil {
		return nil, err
	}
	return sm, nil
}

func (d *Database) schemaManager() (*SchemaManager, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.schema == nil {
		return nil, types.ErrDetached
	}
	return d.schema, nil
}

// Config returns the configuration of the last Attach.
func (d *Database) Config() types.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Driver names the compiled-in SQLite driver: "purego" or "cgo".
func Driver() string {
	return driverType
}

// Version returns the SQLite library version.
func (d *Database) Version(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return "", types.ErrDetached
	}
	return d.conn.Version(ctx)
}

// SchemaUpdate runs fn in exclusive locking mode after the one-time
// integrity check and an enum cache flush.
func (d *Database) SchemaUpdate(ctx context.Context, fn func(ctx context.Context, schema types.SchemaEditor) error) error {
	sm, err := d.schemaManager()
	if err != nil {
		return err
	}
	return sm.SchemaUpdate(ctx, fn)
}

// CheckAndRepair runs the integrity check once per ProcessState.
func (d *Database) CheckAndRepair(ctx context.Context) (bool, error) {
	sm, err := d.schemaManager()
	if err != nil {
		return false, err
	}
	return sm.CheckAndRepair(ctx)
}

// ValidateEnumValue checks value against the recorded domain of
// table.column.
func (d *Database) ValidateEnumValue(ctx context.Context, table, column, value string) error {
	sm, err := d.schemaManager()
	if err != nil {
		return err
	}
	return sm.enums.ValidateValue(ctx, table, column, value)
}

// Compile-time interface checks.
var (
	_ types.Database     = (*Database)(nil)
	_ types.Executor     = (*Connector)(nil)
	_ types.SchemaEditor = (*SchemaManager)(nil)
	_ types.ResultSet    = (*Result)(nil)
)
