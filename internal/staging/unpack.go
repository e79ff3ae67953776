// Package staging manages the process-wide directory that holds downloaded
// archives, their extracted files and uploaded CSVs.
package staging

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// staging directory.
var ErrUnsafePath = errors.New("archive entry escapes staging directory")

// LatestArchive returns the most recently modified .zip directly inside dir.
func LatestArchive(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", dataset.ErrNoArchive, dir)
		}
		return "", fmt.Errorf("read staging dir: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w in %s", dataset.ErrNoArchive, dir)
	}
	return newest, nil
}

// Unpack extracts the newest archive in dir into dir. It serves callers
// that do not know which archive was just written; see UnpackArchive.
func Unpack(dir string) ([]string, error) {
	archive, err := LatestArchive(dir)
	if err != nil {
		return nil, err
	}
	return UnpackArchive(archive, dir)
}

// UnpackArchive extracts archive into dir and returns the paths of the
// extracted files. The archive is deleted only when every entry was
// extracted; on any failure it is left in place for inspection.
func UnpackArchive(archive, dir string) ([]string, error) {
	if _, err := os.Stat(archive); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrNoArchive, archive)
		}
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	start := time.Now()
	files, err := extract(archive, dir)
	if err != nil {
		slog.Warn("archive extraction failed, archive kept",
			"archive", archive,
			"extracted", len(files),
			"error", err,
		)
		return files, err
	}

	if err := os.Remove(archive); err != nil {
		return files, fmt.Errorf("remove archive: %w", err)
	}

	slog.Info("archive extracted",
		"archive", filepath.Base(archive),
		"files", len(files),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return files, nil
}

func extract(archive, dir string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", filepath.Base(archive), err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir: %w", err)
	}

	var files []string
	for _, f := range zr.File {
		dest, err := entryPath(root, f.Name)
		if err != nil {
			return files, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return files, fmt.Errorf("create %s: %w", f.Name, err)
			}
			continue
		}
		if err := extractFile(f, dest); err != nil {
			return files, err
		}
		files = append(files, dest)
	}
	return files, nil
}

// entryPath resolves name under root, rejecting absolute paths and any
// entry that climbs out of root.
func entryPath(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	dest := filepath.Join(root, clean)
	if dest != root && !strings.HasPrefix(dest, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return dest, nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
