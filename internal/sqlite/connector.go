package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// busyTimeoutMillis is how long a statement waits on a locked database.
const busyTimeoutMillis = 60000

// Connector holds the single backend connection and executes raw and
// parameterized statements against it. It is not safe for concurrent use;
// callers serialize operations on one Connector.
type Connector struct {
	db   *sqlx.DB
	conn *sqlx.Conn
	name string

	// savepoints is the stack of open transaction scopes. The outermost
	// entry is "" for the BEGIN-level transaction.
	savepoints []string
}

// Open connects to dataSource (a file path or ":memory:") and pins one
// connection for the Connector's lifetime. name is the logical database
// name reported by Name.
func Open(ctx context.Context, dataSource, name string) (*Connector, error) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, connectionError(err, dataSource)
	}
	// One connection: an in-memory database lives and dies with it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Connx(ctx)
	if err != nil {
		db.Close()
		return nil, connectionError(err, dataSource)
	}

	c := &Connector{db: db, conn: conn, name: name}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)); err != nil {
		c.Close()
		return nil, connectionError(err, dataSource)
	}
	return c, nil
}

// connectionError wraps a failure to open or use the backend handle.
func connectionError(err error, dataSource string) error {
	code, _ := errorCode(err)
	return &types.DatabaseError{
		Kind:    types.KindConnection,
		Message: fmt.Sprintf("cannot open database %q: %v", dataSource, err),
		Code:    code,
		Cause:   err,
	}
}

// Name returns the logical database name given to Open.
func (c *Connector) Name() string {
	return c.name
}

// Close releases the connection. Idempotent.
func (c *Connector) Close() error {
	if c.conn == nil {
		return nil
	}
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	c.conn = nil
	c.db = nil
	c.savepoints = nil
	return errors.Join(connErr, dbErr)
}

// Active reports whether the connection is open.
func (c *Connector) Active() bool {
	return c.conn != nil
}

// InTransaction reports whether a transaction or savepoint is open.
func (c *Connector) InTransaction() bool {
	return len(c.savepoints) > 0
}

// Exec binds params and runs a statement that returns no rows.
func (c *Connector) Exec(ctx context.Context, query string, params ...any) (types.ExecResult, error) {
	if c.conn == nil {
		return types.ExecResult{}, types.ErrDetached
	}
	args, err := bindArgs(params)
	if err != nil {
		return types.ExecResult{}, err
	}
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return types.ExecResult{}, c.classify(err, query, params)
	}
	var out types.ExecResult
	// SQLite drivers always report both; errors here are not actionable.
	out.RowsAffected, _ = res.RowsAffected()
	out.LastInsertID, _ = res.LastInsertId()
	return out, nil
}

// Query runs a raw statement that returns rows.
func (c *Connector) Query(ctx context.Context, query string) (types.ResultSet, error) {
	return c.PreparedQuery(ctx, query)
}

// PreparedQuery prepares query, binds params, and returns its rows. The
// statement is executed twice: once to count rows, once for iteration, so
// it must be free of side effects. Use Exec for statements that write.
func (c *Connector) PreparedQuery(ctx context.Context, query string, params ...any) (types.ResultSet, error) {
	if c.conn == nil {
		return nil, types.ErrDetached
	}
	args, err := bindArgs(params)
	if err != nil {
		return nil, err
	}
	stmt, err := c.conn.PreparexContext(ctx, query)
	if err != nil {
		return nil, c.classify(err, query, params)
	}
	res, err := newResult(ctx, stmt, args)
	if err != nil {
		stmt.Close()
		return nil, c.classify(err, query, params)
	}
	return res, nil
}

// Record runs query and returns its first row, or ok == false when the
// result is empty.
func (c *Connector) Record(ctx context.Context, query string, params ...any) (types.Row, bool, error) {
	res, err := c.PreparedQuery(ctx, query, params...)
	if err != nil {
		return types.Row{}, false, err
	}
	defer res.Close()
	if !res.Next() {
		return types.Row{}, false, res.Err()
	}
	return res.Row(), true, nil
}

// WithTransaction runs fn inside BEGIN/COMMIT. When a transaction is
// already open the scope is a named savepoint instead. Any error or panic
// from fn rolls the scope back and is returned (or re-panicked).
func (c *Connector) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if c.conn == nil {
		return types.ErrDetached
	}
	name, err := c.begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = c.rollback(context.WithoutCancel(ctx), name)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := c.rollback(context.WithoutCancel(ctx), name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return c.commit(ctx, name)
}

func (c *Connector) begin(ctx context.Context) (string, error) {
	if len(c.savepoints) == 0 {
		if err := c.execRaw(ctx, "BEGIN"); err != nil {
			return "", err
		}
		c.savepoints = append(c.savepoints, "")
		return "", nil
	}
	name := savepointName()
	if err := c.execRaw(ctx, "SAVEPOINT "+quoteIdent(name)); err != nil {
		return "", err
	}
	c.savepoints = append(c.savepoints, name)
	return name, nil
}

// commit ends the scope. A failed COMMIT or RELEASE leaves the scope open
// in SQLite, so it is rolled back before the error is returned.
func (c *Connector) commit(ctx context.Context, name string) error {
	query := "COMMIT"
	if name != "" {
		query = "RELEASE " + quoteIdent(name)
	}
	if err := c.execRaw(ctx, query); err != nil {
		if rbErr := c.rollback(context.WithoutCancel(ctx), name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	c.pop()
	return nil
}

func (c *Connector) rollback(ctx context.Context, name string) error {
	c.pop()
	if name == "" {
		return c.execRaw(ctx, "ROLLBACK")
	}
	if err := c.execRaw(ctx, "ROLLBACK TO "+quoteIdent(name)); err != nil {
		return err
	}
	return c.execRaw(ctx, "RELEASE "+quoteIdent(name))
}

func (c *Connector) pop() {
	if len(c.savepoints) > 0 {
		c.savepoints = c.savepoints[:len(c.savepoints)-1]
	}
}

// savepointName returns a fresh savepoint identifier.
func savepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (c *Connector) execRaw(ctx context.Context, query string) error {
	_, err := c.Exec(ctx, query)
	return err
}

// Pragma returns the current value of pragma name as text.
func (c *Connector) Pragma(ctx context.Context, name string) (string, error) {
	row, ok, err := c.Record(ctx, "PRAGMA "+name)
	if err != nil || !ok {
		return "", err
	}
	return fmt.Sprint(row.First()), nil
}

// SetPragma runs PRAGMA name = value.
func (c *Connector) SetPragma(ctx context.Context, name, value string) error {
	return c.execRaw(ctx, fmt.Sprintf("PRAGMA %s = %s", name, value))
}

// Version returns the SQLite library version.
func (c *Connector) Version(ctx context.Context) (string, error) {
	row, ok, err := c.Record(ctx, "SELECT sqlite_version()")
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(fmt.Sprint(row.First())), nil
}

// classify converts a driver error into a *types.DatabaseError.
func (c *Connector) classify(err error, query string, params []any) error {
	code, _ := errorCode(err)
	de := Classify(err.Error(), code, query, params)
	de.Cause = err
	return de
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteIdents quotes and comma-joins identifiers.
func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ",")
}
