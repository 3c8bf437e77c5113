package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a DatabaseError.
type ErrorKind string

// Error kinds.
const (
	KindGeneric                  ErrorKind = "generic"
	KindDuplicateEntry           ErrorKind = "duplicate_entry"
	KindConnection               ErrorKind = "connection"
	KindSchema                   ErrorKind = "schema"
	KindUnsupportedParameterType ErrorKind = "unsupported_parameter_type"
)

// Sentinel errors. A *DatabaseError matches the sentinel for its Kind under
// errors.Is.
var (
	ErrGeneric                  = errors.New("database error")
	ErrDuplicateEntry           = errors.New("duplicate entry")
	ErrConnection               = errors.New("database connection error")
	ErrSchema                   = errors.New("schema change rejected")
	ErrUnsupportedParameterType = errors.New("unsupported parameter type")
)

// Lifecycle and lookup errors.
var (
	ErrDetached         = errors.New("database is detached")
	ErrAlreadyAttached  = errors.New("database is already attached")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrTableNotFound    = errors.New("table not found")
	ErrUnknownFieldKind = errors.New("unknown field kind")
	ErrValueNotInDomain = errors.New("value not in enum domain")
)

var kindSentinels = map[ErrorKind]error{
	KindGeneric:                  ErrGeneric,
	KindDuplicateEntry:           ErrDuplicateEntry,
	KindConnection:               ErrConnection,
	KindSchema:                   ErrSchema,
	KindUnsupportedParameterType: ErrUnsupportedParameterType,
}

// DatabaseError is a classified backend failure. It always carries the raw
// message, backend code, originating SQL and a snapshot of the parameters.
// Columns and Value are set for KindDuplicateEntry only.
type DatabaseError struct {
	Kind    ErrorKind
	Message string
	Code    int
	SQL     string
	Params  []any
	Columns []string
	Value   string
	Cause   error
}

// Error returns a formatted error string.
func (e *DatabaseError) Error() string {
	var b strings.Builder
	if e.Kind == KindDuplicateEntry {
		fmt.Fprintf(&b, "duplicate entry %q for %s", e.Value, strings.Join(e.Columns, ", "))
	} else {
		b.WriteString(e.Message)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.SQL != "" {
		fmt.Fprintf(&b, " in query %q", e.SQL)
	}
	if len(e.Params) > 0 {
		fmt.Fprintf(&b, " with params %v", e.Params)
	}
	return b.String()
}

// Unwrap returns the underlying driver error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e.Kind.
func (e *DatabaseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Key returns the conflicting column list joined the way callers display it.
func (e *DatabaseError) Key() string {
	return strings.Join(e.Columns, ", ")
}

// AsDatabaseError extracts a *DatabaseError from an error chain.
func AsDatabaseError(err error) (*DatabaseError, bool) {
	var de *DatabaseError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
