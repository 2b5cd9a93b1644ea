// Package home manages the scanpress home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the scanpress home directory.
	DefaultDirName = ".scanpress"

	// OutputDirName is the subdirectory for generated documents.
	OutputDirName = "output"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// CheckpointFileName is the single-slot progress checkpoint file.
	CheckpointFileName = "progress.json"

	// LedgerFileName is the SQLite job ledger database file.
	LedgerFileName = "jobs.db"
)

// Dir represents the scanpress home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.scanpress).
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

// OutputDir returns the directory generated documents are written to.
func (d *Dir) OutputDir() string {
	return filepath.Join(d.path, OutputDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CheckpointPath returns the path to the single-slot progress checkpoint.
func (d *Dir) CheckpointPath() string {
	return filepath.Join(d.path, CheckpointFileName)
}

// LedgerPath returns the path to the job ledger database.
func (d *Dir) LedgerPath() string {
	return filepath.Join(d.path, LedgerFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
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
