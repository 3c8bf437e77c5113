// Package sqlite provides the public API for the SQLite driver. It exposes
// the factory for database handles while keeping the implementation
// internal.
package sqlite

import (
	"github.com/mesh-intelligence/sqlschema/internal/sqlite"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// NewProcessState returns the process-scoped state shared by every
// Database of one program.
func NewProcessState() *types.ProcessState {
	return types.NewProcessState()
}

// NewDatabase creates a detached SQLite database handle. Call Attach with a
// Config to connect.
//
// Example:
//
//	state := sqlite.NewProcessState()
//	db := sqlite.NewDatabase(state)
//	err := db.Attach(ctx, types.Config{
//	    Path:     ".sqlitedb",
//	    Database: "app",
//	})
//	defer db.Detach()
func NewDatabase(state *types.ProcessState) types.Database {
	return sqlite.NewDatabase(state)
}
