package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sqlschema/internal/paths"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// configFile holds the structure init writes to config.yaml.
type configFile struct {
	Path        string `yaml:"path,omitempty"`
	Database    string `yaml:"database"`
	Extension   string `yaml:"extension"`
	LockingMode string `yaml:"locking_mode,omitempty"`
	Vacuum      bool   `yaml:"vacuum"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the database",
		Long: "Write config.yaml with the resolved settings when it has only defaults,\n" +
			"create the database directory, and open the database once so its file exists.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	if err := writeConfig(filepath.Join(configDir, configFileExt), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	db := newDatabase(cmd)
	if err := db.Attach(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if err := db.Detach(); err != nil {
		return fmt.Errorf("finalize database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized database %s\n", cfg.FilePath())
	return nil
}

// writeConfig replaces config.yaml with cfg unless the file was edited
// away from the generated default, in which case it is left untouched.
func writeConfig(path string, cfg types.Config) error {
	if data, err := os.ReadFile(path); err == nil && string(data) != defaultConfigYAML {
		return nil
	}

	out := configFile{
		Database:    cfg.Database,
		Extension:   cfg.Extension,
		LockingMode: cfg.LockingMode,
		Vacuum:      cfg.Vacuum,
	}
	if flags.path != "" || flags.memory {
		out.Path = cfg.Path
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
