package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// CheckAndRepair runs the integrity check once per ProcessState. Problems
// are logged and reported as false. When Vacuum is configured the database
// is vacuumed afterwards; an authorization refusal is only logged. The
// database is in exclusive locking mode for the duration.
func (m *SchemaManager) CheckAndRepair(ctx context.Context) (bool, error) {
	if !m.state.BeginCheck() {
		return true, nil
	}
	var ok bool
	err := m.withExclusiveLock(ctx, func(ctx context.Context) error {
		var err error
		ok, err = m.checkAndRepair(ctx)
		return err
	})
	return ok, err
}

func (m *SchemaManager) checkAndRepair(ctx context.Context) (bool, error) {
	m.alterationMessage("checking database integrity")

	res, err := m.conn.Query(ctx, "PRAGMA integrity_check")
	if err != nil {
		return false, fmt.Errorf("integrity check: %w", err)
	}
	rows, err := collect(res)
	if err != nil {
		return false, fmt.Errorf("integrity check: %w", err)
	}
	ok := true
	for _, row := range rows {
		if msg := row.String(row.Columns[0]); msg != "ok" {
			m.logger.Printf("[WARN] integrity check: %s", msg)
			ok = false
		}
	}

	if !m.cfg.Vacuum {
		return ok, nil
	}
	if m.conn.InTransaction() {
		m.logger.Printf("[WARN] VACUUM skipped: a transaction is open")
		return ok, nil
	}
	if _, err := m.conn.Exec(ctx, "VACUUM"); err != nil {
		if strings.Contains(err.Error(), "authoriz") {
			m.logger.Printf("[WARN] VACUUM | %v", err)
			return ok, nil
		}
		return ok, fmt.Errorf("vacuum: %w", err)
	}
	m.alterationMessage("vacuumed")
	return ok, nil
}
