package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// rowStatements are the leading keywords of statements that return rows.
var rowStatements = []string{"SELECT", "PRAGMA", "WITH", "VALUES", "EXPLAIN"}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql> [params...]",
		Short: "Run a parameterized statement",
		Long: `Run one SQL statement with positional ? parameters.

Parameters are parsed as JSON where possible (numbers, true/false, null)
and bound as text otherwise. Statements that return rows print them;
other statements print the affected row count and last insert id.

Example:
  sqlschema query 'INSERT INTO "Person" ("Name") VALUES (?)' Ada
  sqlschema query 'SELECT * FROM "Person" WHERE "ID" > ?' 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := args[0]
	params := make([]any, len(args)-1)
	for i, a := range args[1:] {
		params[i] = parseParam(a)
	}

	db, err := attachDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Detach()
	exec, err := db.Executor()
	if err != nil {
		return err
	}

	if !returnsRows(query) {
		res, err := exec.Exec(cmd.Context(), query, params...)
		if err != nil {
			return err
		}
		if flags.jsonMode {
			return printJSON(cmd, map[string]int64{
				"rows_affected":  res.RowsAffected,
				"last_insert_id": res.LastInsertID,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) affected, last insert id %d\n", res.RowsAffected, res.LastInsertID)
		return nil
	}

	rs, err := exec.PreparedQuery(cmd.Context(), query, params...)
	if err != nil {
		return err
	}
	var (
		columns []string
		records = make([]map[string]any, 0, rs.Count())
		rows    = make([][]string, 0, rs.Count())
	)
	err = rs.Each(func(row types.Row) error {
		columns = row.Columns
		record := make(map[string]any, len(row.Columns))
		cells := make([]string, len(row.Columns))
		for i, c := range row.Columns {
			v := row.Get(c)
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[c] = v
			cells[i] = row.String(c)
		}
		records = append(records, record)
		rows = append(rows, cells)
		return nil
	})
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, records)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no rows)")
		return nil
	}
	return printTable(cmd, columns, rows)
}

// returnsRows reports whether query starts with a row-returning keyword.
func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	for _, kw := range rowStatements {
		if first == kw {
			return true
		}
	}
	return false
}

// parseParam converts a command-line argument to a bind value: JSON
// scalars keep their type, everything else is text.
func parseParam(arg string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return arg
	}
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
	}
	return arg
}
