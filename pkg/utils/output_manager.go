package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager owns one figure output directory
type OutputManager struct {
	BaseOutputDir string
	Ordinal       bool // prefix file names with a two-digit sequence number
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string, ordinal bool) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
		Ordinal:       ordinal,
	}
}

// Reset deletes and recreates the output directory. A failed delete is
// reported before anything is created so stale and fresh output never mix.
func (om *OutputManager) Reset() error {
	if om.BaseOutputDir == "" || filepath.Clean(om.BaseOutputDir) == "." || filepath.Clean(om.BaseOutputDir) == "/" {
		return fmt.Errorf("refusing to reset output directory %q", om.BaseOutputDir)
	}
	if err := os.RemoveAll(om.BaseOutputDir); err != nil {
		return fmt.Errorf("failed to clear output directory: %w", err)
	}
	if err := os.MkdirAll(om.BaseOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Discard removes the output directory after a failed run.
func (om *OutputManager) Discard() error {
	return os.RemoveAll(om.BaseOutputDir)
}

// FileName returns the stable name of the chart at 1-based position ordinal
func (om *OutputManager) FileName(ordinal int, slug string) string {
	slug = filepath.Base(strings.TrimSuffix(slug, ".png"))
	if om.Ordinal {
		return fmt.Sprintf("%02d_%s.png", ordinal, slug)
	}
	return slug + ".png"
}

// GetOutputFilePath generates a full path for an output file
func (om *OutputManager) GetOutputFilePath(fileName string) string {
	return filepath.Join(om.BaseOutputDir, filepath.Base(fileName))
}

// WriteFile writes one figure and returns the number of bytes written
func (om *OutputManager) WriteFile(fileName string, r io.Reader) (int64, error) {
	path := om.GetOutputFilePath(fileName)
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return n, nil
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".png":
		return "png"
	case ".json":
		return "json"
	case ".xlsx":
		return "excel"
	default:
		return "unknown"
	}
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
