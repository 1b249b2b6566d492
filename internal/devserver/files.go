// Package devserver serves a local directory over the workspace HTTP API and
// exposes a shell per websocket connection. It backs `devbox serve` and the
// client package tests.
package devserver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-errors/errors"
)

var (
	// ErrOutsideRoot is returned for paths that escape the served root.
	ErrOutsideRoot = errors.New("path outside root")
	// ErrExists is returned when a create or rename target already exists.
	ErrExists = errors.New("path already exists")
)

// Entry mirrors the list response item.
type Entry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	Path        string `json:"path"`
}

// FS performs file operations confined to a root directory. Paths are
// relative to the root and use forward slashes on the wire.
type FS struct {
	root string
}

// NewFS returns an FS rooted at dir. The directory must exist.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WrapPrefix(err, "resolve root", 0)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.WrapPrefix(err, "stat root", 0)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("root %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string {
	return f.root
}

// resolve maps a request path to an absolute path inside the root.
func (f *FS) resolve(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(f.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}

	// Follow symlinks on the deepest existing ancestor.
	dir := abs
	for {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			r, err := filepath.Rel(f.root, real)
			if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
				return "", ErrOutsideRoot
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return abs, nil
}

func (f *FS) relative(abs string) string {
	r, err := filepath.Rel(f.root, abs)
	if err != nil || r == "." {
		return ""
	}
	return filepath.ToSlash(r)
}

// List returns the immediate children of dir, directories first, then by name.
func (f *FS) List(dir string) ([]Entry, error) {
	abs, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		entries = append(entries, Entry{
			Name:        de.Name(),
			IsDirectory: de.IsDir(),
			Path:        f.relative(filepath.Join(abs, de.Name())),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Read returns a file's content.
func (f *FS) Read(path string) (string, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Update replaces the content of an existing file.
func (f *FS) Update(path, content string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.Errorf("%s is a directory", path)
	}
	return os.WriteFile(abs, []byte(content), info.Mode().Perm())
}

// CreateFile creates an empty file. The parent must exist.
func (f *FS) CreateFile(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrExists
		}
		return err
	}
	return file.Close()
}

// CreateFolder creates a directory. The parent must exist.
func (f *FS) CreateFolder(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		if os.IsExist(err) {
			return ErrExists
		}
		return err
	}
	return nil
}

// Rename moves oldPath to newPath. An existing target is not replaced.
func (f *FS) Rename(oldPath, newPath string) error {
	from, err := f.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := f.resolve(newPath)
	if err != nil {
		return err
	}
	if from == f.root || to == f.root {
		return ErrOutsideRoot
	}
	if _, err := os.Lstat(to); err == nil {
		return ErrExists
	}
	return os.Rename(from, to)
}

// Delete removes a file or a directory tree. The root itself cannot be deleted.
func (f *FS) Delete(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return ErrOutsideRoot
	}
	if _, err := os.Lstat(abs); err != nil {
		return err
	}
	return os.RemoveAll(abs)
}
