package types

import (
	"errors"
	"path/filepath"
)

// Config holds connection parameters for Database.Attach.
type Config struct {
	// Path is the directory holding database files, or MemoryPath for an
	// in-memory database.
	Path string `json:"path" yaml:"path"`

	// Database is the logical database name. The file on disk is
	// Database + Extension.
	Database string `json:"database" yaml:"database"`

	// Extension is appended to every database file name.
	Extension string `json:"extension" yaml:"extension"`

	// LockingMode is applied on connect. Empty keeps the backend's current
	// mode and remembers it for the lifetime of the process.
	LockingMode string `json:"locking_mode" yaml:"locking_mode"`

	// Vacuum controls whether CheckAndRepair reclaims unused storage.
	Vacuum bool `json:"vacuum" yaml:"vacuum"`
}

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// Defaults applied by WithDefaults.
const (
	DefaultDatabaseName = "database"
	DefaultExtension    = ".sqlite"
	DefaultLockingMode  = "NORMAL"
)

// Config validation errors.
var (
	ErrPathEmpty          = errors.New("database path must not be empty")
	ErrDatabaseNameEmpty  = errors.New("database name must not be empty")
	ErrInvalidDatabase    = errors.New("invalid database name")
	ErrLockingModeUnknown = errors.New("unknown locking mode")
)

var knownLockingModes = map[string]bool{
	"":          true,
	"NORMAL":    true,
	"EXCLUSIVE": true,
}

// WithDefaults returns a copy of c with an empty Database and Extension
// replaced by their defaults.
func (c Config) WithDefaults() Config {
	if c.Database == "" {
		c.Database = DefaultDatabaseName
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	return c
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Path == "" {
		return ErrPathEmpty
	}
	if c.Database == "" {
		return ErrDatabaseNameEmpty
	}
	if filepath.Base(c.Database) != c.Database || c.Database == "." || c.Database == ".." {
		return ErrInvalidDatabase
	}
	if !knownLockingModes[c.LockingMode] {
		return ErrLockingModeUnknown
	}
	return nil
}

// LivesInMemory reports whether the Config selects the in-memory backend.
func (c Config) LivesInMemory() bool {
	return c.Path == MemoryPath
}

// FilePath returns the data source for the configured database: the
// in-memory marker, or Path/Database+Extension.
func (c Config) FilePath() string {
	if c.LivesInMemory() {
		return MemoryPath
	}
	return filepath.Join(c.Path, c.Database+c.Extension)
}
