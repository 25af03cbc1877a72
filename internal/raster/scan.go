package raster

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotDirectory indicates the scan root is missing or not a directory
var ErrNotDirectory = errors.New("not a valid directory")

// DefaultExtensions are the file extensions scanned when none are configured
var DefaultExtensions = []string{".tif", ".tiff"}

// Scanner enumerates candidate raster files in a directory
type Scanner struct {
	fs         afero.Fs
	extensions map[string]bool
}

// NewScanner creates a scanner over fs matching extensions case-insensitively.
// Empty extensions fall back to DefaultExtensions.
func NewScanner(fs afero.Fs, extensions []string) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return &Scanner{fs: fs, extensions: set}
}

// CheckDir returns ErrNotDirectory when dir cannot be scanned
func (s *Scanner) CheckDir(dir string) error {
	ok, err := afero.IsDir(s.fs, dir)
	if err != nil || !ok {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return nil
}

// Scan lists matching regular files directly under dir, sorted by name.
// Subdirectories are not descended.
func (s *Scanner) Scan(dir string) ([]string, error) {
	if err := s.CheckDir(dir); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !s.extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
