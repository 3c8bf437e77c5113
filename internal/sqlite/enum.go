package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// EnumCatalog is the side table that stores allowed values for emulated
// enum and set columns, one row per "table.column".
const EnumCatalog = "SQLiteEnums"

// EnumRegistry records enum and set domains in the catalog table and caches
// them per connection. The domains are advisory: nothing stops a write of a
// value outside the list, and entries outlive the columns they describe.
type EnumRegistry struct {
	conn *Connector

	mu    sync.Mutex
	cache map[string]string
}

// NewEnumRegistry returns an empty registry over conn.
func NewEnumRegistry(conn *Connector) *EnumRegistry {
	return &EnumRegistry{conn: conn, cache: make(map[string]string)}
}

func enumKey(table, column string) string {
	return table + "." + column
}

// Register stores values as the domain of table.column and returns the
// column type text: TEXT, with def as a quoted default when given. The
// catalog write is skipped when the cached domain is unchanged.
func (r *EnumRegistry) Register(ctx context.Context, table, column string, values []string, def string) (string, error) {
	key := enumKey(table, column)
	list := strings.Join(values, ",")

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.cache) == 0 {
		q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s ("TableColumn" TEXT PRIMARY KEY, "EnumList" TEXT)`, quoteIdent(EnumCatalog))
		if _, err := r.conn.Exec(ctx, q); err != nil {
			return "", fmt.Errorf("create enum catalog: %w", err)
		}
	}
	if cached, ok := r.cache[key]; !ok || cached != list {
		q := fmt.Sprintf(`REPLACE INTO %s ("TableColumn", "EnumList") VALUES (?, ?)`, quoteIdent(EnumCatalog))
		if _, err := r.conn.Exec(ctx, q, key, list); err != nil {
			return "", fmt.Errorf("register enum %s: %w", key, err)
		}
		r.cache[key] = list
	}
	return enumColumnType(def), nil
}

// enumColumnType renders the column type for an emulated enum.
func enumColumnType(def string) string {
	if def == "" {
		return "TEXT"
	}
	def = strings.ReplaceAll(def, "\x00", "")
	return "TEXT DEFAULT '" + strings.ReplaceAll(def, "'", "''") + "'"
}

// Lookup returns the domain of table.column, or an empty list when none is
// recorded or the catalog does not exist yet.
func (r *EnumRegistry) Lookup(ctx context.Context, table, column string) ([]string, error) {
	key := enumKey(table, column)

	r.mu.Lock()
	defer r.mu.Unlock()

	if list := r.cache[key]; list != "" {
		return strings.Split(list, ","), nil
	}

	q := fmt.Sprintf(`SELECT "EnumList" FROM %s WHERE "TableColumn" = ?`, quoteIdent(EnumCatalog))
	row, ok, err := r.conn.Record(ctx, q, key)
	if err != nil {
		if isMissingTable(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("lookup enum %s: %w", key, err)
	}
	if !ok {
		return []string{}, nil
	}
	list := row.String("EnumList")
	if list == "" {
		return []string{}, nil
	}
	r.cache[key] = list
	return strings.Split(list, ","), nil
}

// ValidateValue checks value against the domain of table.column. A set
// value is a comma-separated list and every member must be allowed. Columns
// without a recorded domain accept anything, as does the empty value.
func (r *EnumRegistry) ValidateValue(ctx context.Context, table, column, value string) error {
	allowed, err := r.Lookup(ctx, table, column)
	if err != nil {
		return err
	}
	if len(allowed) == 0 || value == "" {
		return nil
	}
	for _, member := range strings.Split(value, ",") {
		if !slices.Contains(allowed, member) {
			return fmt.Errorf("%w: %q for %s", types.ErrValueNotInDomain, member, enumKey(table, column))
		}
	}
	return nil
}

// Flush empties the cache. The next Register recreates the catalog if it
// was dropped in the meantime.
func (r *EnumRegistry) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
}

func isMissingTable(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}
