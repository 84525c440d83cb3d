// Package output writes the generated Talend project tree and packages it
// into an importable zip archive.
package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Layout computes the artifact paths of a generated project:
//
//	<root>/<project>/talend.project
//	<root>/<project>/process/DataStage/<basename>.item
//	<root>/<project>/process/DataStage/<basename>.properties
type Layout struct {
	Root    string
	Project string
}

// ProjectDir is the project directory.
func (l Layout) ProjectDir() string {
	return filepath.Join(l.Root, l.Project)
}

// ProjectFile is the talend.project path.
func (l Layout) ProjectFile() string {
	return filepath.Join(l.ProjectDir(), "talend.project")
}

// ProcessDir is the directory holding job items.
func (l Layout) ProcessDir() string {
	return filepath.Join(l.ProjectDir(), "process", "DataStage")
}

// ItemFile is the .item path for a job basename.
func (l Layout) ItemFile(basename string) string {
	return filepath.Join(l.ProcessDir(), basename+".item")
}

// PropertiesFile is the .properties path for a job basename.
func (l Layout) PropertiesFile(basename string) string {
	return filepath.Join(l.ProcessDir(), basename+".properties")
}

// FileWriter writes serialized output to a file, creating parent
// directories as needed.
type FileWriter struct {
	path   string
	perm   os.FileMode
	logger *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// NewFileWriter creates a writer that writes to the specified file path.
func NewFileWriter(path string, opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		path:   path,
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write creates parent directories and writes data to the file.
func (fw *FileWriter) Write(data []byte) error {
	dir := filepath.Dir(fw.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Check if file exists for warning.
	if _, err := os.Stat(fw.path); err == nil {
		fw.logger.Warn("overwriting existing file", slog.String("path", fw.path))
	}

	if err := os.WriteFile(fw.path, data, fw.perm); err != nil {
		return fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	return nil
}

// Path returns the output file path.
func (fw *FileWriter) Path() string {
	return fw.path
}
