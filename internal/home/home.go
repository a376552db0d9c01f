// Package home locates the fieldfill home directory (~/.fieldfill), which holds
// the default config file and user schemas.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the fieldfill home directory.
	DefaultDirName = ".fieldfill"

	// SchemasDirName is the subdirectory for user schema files.
	SchemasDirName = "schemas"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the fieldfill home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.fieldfill).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// SchemasPath returns the path to the user schemas directory.
func (d *Dir) SchemasPath() string {
	return filepath.Join(d.path, SchemasDirName)
}

// SchemaPath returns where a user schema named name would live.
func (d *Dir) SchemaPath(name string) string {
	return filepath.Join(d.SchemasPath(), name+".yaml")
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create schemas directory (this also creates the parent)
	if err := os.MkdirAll(d.SchemasPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create schemas directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// UserSchemas returns the names of schema files in the schemas directory.
func (d *Dir) UserSchemas() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.SchemasPath(), "*.yaml"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m[:len(m)-len(".yaml")]))
	}
	return names, nil
}

// HasSchema returns true if a user schema named name exists.
func (d *Dir) HasSchema(name string) bool {
	_, err := os.Stat(d.SchemaPath(name))
	return err == nil
}
