package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// Result is a forward-only cursor over the rows of a prepared statement.
// It owns the statement and closes it with the cursor.
type Result struct {
	stmt    *sqlx.Stmt
	rows    *sqlx.Rows
	columns []string
	count   int
	row     types.Row
	err     error
}

// newResult counts the rows of stmt, then re-executes it to position a
// fresh cursor before the first row.
func newResult(ctx context.Context, stmt *sqlx.Stmt, args []any) (*Result, error) {
	count, err := countRows(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryxContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &Result{stmt: stmt, rows: rows, columns: columns, count: count}, nil
}

func countRows(ctx context.Context, stmt *sqlx.Stmt, args []any) (int, error) {
	rows, err := stmt.QueryxContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// Next advances to the next row.
func (r *Result) Next() bool {
	if r.rows == nil || r.err != nil {
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Err()
		return false
	}
	values := make(map[string]any, len(r.columns))
	if err := r.rows.MapScan(values); err != nil {
		r.err = err
		return false
	}
	r.row = types.Row{Columns: r.columns, Values: values}
	return true
}

// Row returns the current row.
func (r *Result) Row() types.Row {
	return r.row
}

// Err returns the first iteration error.
func (r *Result) Err() error {
	return r.err
}

// Count returns the number of rows the statement produced.
func (r *Result) Count() int {
	return r.count
}

// Columns returns the result column names in select order.
func (r *Result) Columns() []string {
	return r.columns
}

// Each calls fn for every remaining row, stopping at the first error, and
// closes the result.
func (r *Result) Each(fn func(types.Row) error) (err error) {
	defer func() {
		if cerr := r.Close(); err == nil {
			err = cerr
		}
	}()
	for r.Next() {
		if err := fn(r.Row()); err != nil {
			return err
		}
	}
	return r.Err()
}

// Close releases the cursor and the statement. Idempotent.
func (r *Result) Close() error {
	if r.rows == nil {
		return nil
	}
	rowsErr := r.rows.Close()
	stmtErr := r.stmt.Close()
	r.rows = nil
	r.stmt = nil
	if rowsErr != nil {
		return rowsErr
	}
	return stmtErr
}

// collect drains res into a slice and closes it.
func collect(res types.ResultSet) ([]types.Row, error) {
	var out []types.Row
	err := res.Each(func(row types.Row) error {
		out = append(out, row)
		return nil
	})
	return out, err
}
