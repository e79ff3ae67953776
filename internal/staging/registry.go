package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// FileInfo describes a CSV file in the staging directory.
type FileInfo struct {
	Name    string    `json:"name" yaml:"name"` // slash-separated, relative to the staging dir
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Registry lists and resolves the tabular files in a staging directory.
type Registry struct {
	dir string
}

// NewRegistry returns a registry rooted at dir. The directory need not exist.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Dir returns the staging directory.
func (r *Registry) Dir() string { return r.dir }

// EnsureDir creates the staging directory if needed.
func (r *Registry) EnsureDir() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	return nil
}

// List returns every .csv file under the staging dir, sorted by name.
// A missing directory is an empty listing.
func (r *Registry) List() ([]FileInfo, error) {
	var out []FileInfo
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !isCSV(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			return err
		}
		out = append(out, FileInfo{
			Name:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list staging dir: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Latest returns the most recently modified CSV. ok is false when there is
// none.
func (r *Registry) Latest() (fi FileInfo, ok bool, err error) {
	files, err := r.List()
	if err != nil {
		return FileInfo{}, false, err
	}
	for _, f := range files {
		if !ok || f.ModTime.After(fi.ModTime) {
			fi, ok = f, true
		}
	}
	return fi, ok, nil
}

// Resolve maps a listed name to its path on disk.
func (r *Registry) Resolve(name string) (string, error) {
	path, err := r.path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", dataset.ErrFileNotFound, name)
		}
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", dataset.ErrFileNotFound, name)
	}
	return path, nil
}

// Exists reports whether name still resolves to a file.
func (r *Registry) Exists(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// Save writes src into the staging dir under the base name of name and
// returns the stored name.
func (r *Registry) Save(name string, src io.Reader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + filepath.ToSlash(name)))
	if base == "/" || base == "." || base == "" {
		return "", fmt.Errorf("%w: empty file name", dataset.ErrFileNotFound)
	}
	if err := r.EnsureDir(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(r.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(r.dir, base)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	return base, nil
}

// Clear deletes everything inside the staging dir, keeping the directory.
// It returns the number of top-level entries removed.
func (r *Registry) Clear() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read staging dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(r.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// path joins a slash-separated relative name onto the staging dir and
// rejects names that leave it.
func (r *Registry) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", dataset.ErrFileNotFound)
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", dataset.ErrFileNotFound, name)
	}
	return filepath.Join(r.dir, clean), nil
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
