//go:build !cgo_sqlite

package sqlite

import (
	"errors"

	msqlite "modernc.org/sqlite"
)

// Pure Go SQLite (modernc.org/sqlite). Default build.
const (
	driverName = "sqlite"
	driverType = "purego"
)

// errorCode returns the SQLite result code carried by err, if any.
func errorCode(err error) (int, bool) {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}
