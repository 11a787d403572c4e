// Package registry tracks which catalog models are installed on disk.
//
// Each model lives in its own directory under the store root. A model counts
// as installed only once the install marker is written, which happens after
// every file has been moved into place. Downloads write to "*.part" files so
// an interrupted transfer never looks installed.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"localassist/internal/catalog"
	"localassist/internal/common/fsutil"
)

const (
	markerName    = ".installed"
	partialSuffix = ".part"
)

// Store maps descriptors to on-disk locations.
type Store struct {
	root string
}

// NewStore creates the store root if needed. A leading '~' is expanded.
func NewStore(dir string) (*Store, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory holding a model's files.
func (s *Store) Dir(d catalog.Descriptor) string {
	return filepath.Join(s.root, safeName(d.Name))
}

// FilePath returns the final location of one model file.
func (s *Store) FilePath(d catalog.Descriptor, file string) string {
	return filepath.Join(s.Dir(d), filepath.Base(file))
}

// PartialPath returns the in-progress download location of one model file.
func (s *Store) PartialPath(d catalog.Descriptor, file string) string {
	return s.FilePath(d, file) + partialSuffix
}

// Path returns the weights file location.
func (s *Store) Path(d catalog.Descriptor) string {
	return s.FilePath(d, d.Primary())
}

// Installed reports whether the marker and every file are present.
func (s *Store) Installed(d catalog.Descriptor) bool {
	if !fsutil.PathExists(filepath.Join(s.Dir(d), markerName)) {
		return false
	}
	for _, f := range d.Files {
		if !fsutil.PathExists(s.FilePath(d, f)) {
			return false
		}
	}
	return true
}

// Prepare creates the model directory ahead of a download.
func (s *Store) Prepare(d catalog.Descriptor) error {
	return os.MkdirAll(s.Dir(d), 0o755)
}

// Commit promotes finished partial files and writes the install marker.
func (s *Store) Commit(d catalog.Descriptor) error {
	for _, f := range d.Files {
		part := s.PartialPath(d, f)
		if fsutil.PathExists(part) {
			if err := os.Rename(part, s.FilePath(d, f)); err != nil {
				return fmt.Errorf("promote %s: %w", f, err)
			}
		}
		if !fsutil.PathExists(s.FilePath(d, f)) {
			return fmt.Errorf("missing file after download: %s", f)
		}
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	return fsutil.WriteFileAtomic(filepath.Join(s.Dir(d), markerName), stamp, 0o644)
}

// Abandon removes partial files and the marker so a failed download leaves
// nothing that looks installed. Completed files of other downloads are kept.
func (s *Store) Abandon(d catalog.Descriptor) error {
	var firstErr error
	if err := fsutil.RemoveIfExists(filepath.Join(s.Dir(d), markerName)); err != nil {
		firstErr = err
	}
	for _, f := range d.Files {
		if err := fsutil.RemoveIfExists(s.PartialPath(d, f)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Remove deletes every file of a model.
func (s *Store) Remove(d catalog.Descriptor) error {
	return os.RemoveAll(s.Dir(d))
}

// Scan returns the names of installed models known to the catalog.
func (s *Store) Scan(c *catalog.Catalog) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			present[e.Name()] = true
		}
	}
	var names []string
	for _, d := range c.All() {
		if present[safeName(d.Name)] && s.Installed(d) {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// safeName keeps descriptor names from escaping the store root.
func safeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(name)
}
