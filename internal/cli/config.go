package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyPath        = "path"
	cfgKeyDatabase    = "database"
	cfgKeyExtension   = "extension"
	cfgKeyLockingMode = "locking_mode"
	cfgKeyVacuum      = "vacuum"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# sqlschema configuration

# Database directory, or ":memory:" (optional; overridable by --path)
# path:

# Database name; the file is <path>/<database><extension>
database: database
extension: .sqlite

# Locking mode applied on connect: NORMAL or EXCLUSIVE.
# Empty keeps the SQLite default.
# locking_mode:

# Reclaim unused storage during the integrity check
vacuum: true
`

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDatabase, types.DefaultDatabaseName)
	v.SetDefault(cfgKeyExtension, types.DefaultExtension)
	v.SetDefault(cfgKeyVacuum, true)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
