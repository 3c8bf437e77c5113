// Package paths resolves the configuration and database directories and
// creates the database directory with owner-only permissions.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative default directory for database files.
const DefaultDataDirName = ".sqlitedb"

// appName is the directory name used under platform config locations.
const appName = "sqlschema"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SQLSCHEMA_CONFIG_DIR"
	EnvDataDir   = "SQLSCHEMA_DATABASE_PATH"
)

// MemoryPath selects an in-memory database and is never made absolute.
const MemoryPath = ":memory:"

// SecureDirPerm is the permission mode of a created database directory.
const SecureDirPerm os.FileMode = 0o700

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/sqlschema (fallback ~/.config/sqlschema)
// macOS:   ~/Library/Application Support/sqlschema
// Windows: %APPDATA%/sqlschema
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > SQLSCHEMA_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the database directory following the precedence
// chain: flag > configYAMLValue > SQLSCHEMA_DATABASE_PATH env > $(CWD)/.sqlitedb.
// The in-memory marker is returned unchanged from any source.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	for _, v := range []string{flag, configYAMLValue, os.Getenv(EnvDataDir)} {
		if v == MemoryPath {
			return v, nil
		}
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// EnsureSecureDir creates dir and its parents if missing. A directory it
// creates is readable only by its owner. Existing directories are left as
// they are.
func EnsureSecureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(dir, SecureDirPerm); err != nil {
		return err
	}
	// MkdirAll is subject to the umask.
	return os.Chmod(dir, SecureDirPerm)
}
