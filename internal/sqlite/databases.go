package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/mesh-intelligence/sqlschema/internal/paths"
	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// DatabaseList returns the databases in the configured directory: every
// regular file carrying the database extension, without it. In memory the
// configured name is the only database.
func (d *Database) DatabaseList() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.databaseList()
}

func (d *Database) databaseList() ([]string, error) {
	cfg := d.cfg.WithDefaults()
	if cfg.LivesInMemory() {
		return []string{cfg.Database}, nil
	}
	if cfg.Path == "" {
		return nil, types.ErrPathEmpty
	}

	entries, err := os.ReadDir(cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading database directory: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), cfg.Extension) {
			continue
		}
		if name := strings.TrimSuffix(e.Name(), cfg.Extension); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// DatabaseExists reports whether name is in DatabaseList.
func (d *Database) DatabaseExists(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.databaseExists(name)
}

func (d *Database) databaseExists(name string) (bool, error) {
	names, err := d.databaseList()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// CreateDatabase replaces any existing database name with an empty file.
// In memory it does nothing.
func (d *Database) CreateDatabase(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createDatabase(name)
}

func (d *Database) createDatabase(name string) error {
	cfg, err := d.configFor(name)
	if err != nil || cfg.LivesInMemory() {
		return err
	}
	if err := d.dropDatabase(name); err != nil {
		return err
	}
	if err := paths.EnsureSecureDir(cfg.Path); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating database %s: %w", name, err)
	}
	return f.Close()
}

// DropDatabase removes the file of database name. Dropping the attached
// database detaches first. In memory it does nothing.
func (d *Database) DropDatabase(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropDatabase(name)
}

func (d *Database) dropDatabase(name string) error {
	cfg, err := d.configFor(name)
	if err != nil || cfg.LivesInMemory() {
		return err
	}
	if d.conn != nil && d.cfg.Database == name {
		if err := d.detach(); err != nil {
			return err
		}
	}
	if err := os.Remove(cfg.FilePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("dropping database %s: %w", name, err)
	}
	return nil
}

// configFor returns the current configuration retargeted at name.
func (d *Database) configFor(name string) (types.Config, error) {
	cfg := d.cfg.WithDefaults()
	cfg.Database = name
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// SelectDatabase reconnects to database name. A missing database is
// created when create is set; otherwise the connection is dropped and
// ErrDatabaseNotFound returned.
func (d *Database) SelectDatabase(ctx context.Context, name string, create bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	exists, err := d.databaseExists(name)
	if err != nil {
		return err
	}
	if !exists {
		if !create {
			if err := d.detach(); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", types.ErrDatabaseNotFound, name)
		}
		if err := d.createDatabase(name); err != nil {
			return err
		}
	}

	cfg, err := d.configFor(name)
	if err != nil {
		return err
	}
	if err := d.detach(); err != nil {
		return err
	}
	return d.attach(ctx, cfg)
}
