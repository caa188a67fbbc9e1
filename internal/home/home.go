package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the ocrdiff home directory.
	DefaultDirName = ".ocrdiff"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// ParsersFileName is the local copy of the parser catalog.
	ParsersFileName = "parsers.json"

	// HistoryFileName is the SQLite database holding past runs.
	HistoryFileName = "history.db"

	// ExportsDirName is the subdirectory for exported reports.
	ExportsDirName = "exports"
)

// Dir represents the ocrdiff home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.ocrdiff).
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

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ParsersPath returns the path to the local parsers.json.
func (d *Dir) ParsersPath() string {
	return filepath.Join(d.path, ParsersFileName)
}

// HistoryPath returns the path to the run history database.
func (d *Dir) HistoryPath() string {
	return filepath.Join(d.path, HistoryFileName)
}

// ExportsDir returns the directory for exported reports.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, ExportsDirName)
}

// RunExportPath returns the path of an exported report for a run.
func (d *Dir) RunExportPath(runID, ext string) string {
	return filepath.Join(d.ExportsDir(), fmt.Sprintf("run_%s.%s", runID, ext))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Creating the exports directory also creates the parent
	if err := os.MkdirAll(d.ExportsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create exports directory: %w", err)
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
