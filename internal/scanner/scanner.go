package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Stage scans the staging directory for design files awaiting upload.
type Stage struct {
	dir     string
	pattern string
}

// New builds a Stage over dir; pattern defaults to design_*.png.
func New(dir, pattern string) *Stage {
	if pattern == "" {
		pattern = "design_*.png"
	}
	return &Stage{dir: dir, pattern: pattern}
}

// Dir returns the staging directory.
func (s *Stage) Dir() string {
	return s.dir
}

// Collect lists matching design files sorted by name, so repeated runs walk
// the directory in the same order.
func (s *Stage) Collect() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.dir, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}

	sort.Strings(files)
	return files, nil
}

// Single validates one explicitly requested design file.
func (s *Stage) Single(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("design file %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("design file %s is a directory", path)
	}
	return path, nil
}

// Matches reports whether a path looks like a staged design file.
func (s *Stage) Matches(path string) bool {
	ok, err := filepath.Match(s.pattern, filepath.Base(path))
	return err == nil && ok
}
