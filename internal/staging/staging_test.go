package staging

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// writeZip creates dir/name with the given entries (name -> content).
// Entries ending in "/" are directories.
func writeZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for n, body := range entries {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("zip entry %s: %v", n, err)
		}
		if !strings.HasSuffix(n, "/") {
			if _, err := w.Write([]byte(body)); err != nil {
				t.Fatalf("zip write %s: %v", n, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
	return path
}

func countZips(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			n++
		}
	}
	return n
}

func TestUnpackRemovesArchive(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, dir, "telco.zip", map[string]string{
		"WA_Fn-UseC_-Telco-Customer-Churn.csv": "a,b\n1,2\n",
		"extra/":                               "",
		"extra/notes.csv":                      "x\n1\n",
	})

	files, err := Unpack(dir)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("extracted %d files, want 2", len(files))
	}
	if n := countZips(t, dir); n != 0 {
		t.Errorf("%d archives left after unpack", n)
	}

	list, err := NewRegistry(dir).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "WA_Fn-UseC_-Telco-Customer-Churn.csv" || list[1].Name != "extra/notes.csv" {
		t.Errorf("listing = %+v", list)
	}
}

func TestUnpackNoArchive(t *testing.T) {
	dir := t.TempDir()
	if _, err := Unpack(dir); !errors.Is(err, dataset.ErrNoArchive) {
		t.Fatalf("err = %v, want ErrNoArchive", err)
	}
	if _, err := Unpack(filepath.Join(dir, "missing")); !errors.Is(err, dataset.ErrNoArchive) {
		t.Fatalf("missing dir: err = %v, want ErrNoArchive", err)
	}
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, dir, "evil.zip", map[string]string{"../escape.csv": "a\n1\n"})

	_, err := Unpack(dir)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("err = %v, want ErrUnsafePath", err)
	}
	if n := countZips(t, dir); n != 1 {
		t.Errorf("archive should be kept after a failed extraction, found %d", n)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("entry escaped the staging dir")
	}
}

func TestUnpackCorruptArchiveKept(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.zip"), []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Unpack(dir); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
	if n := countZips(t, dir); n != 1 {
		t.Errorf("corrupt archive removed")
	}
}

func TestUnpackArchiveIgnoresNewerArchives(t *testing.T) {
	dir := t.TempDir()
	mine := writeZip(t, dir, "sales.zip", map[string]string{"sales.csv": "a\n1\n"})
	other := writeZip(t, dir, "stale.zip", map[string]string{"stale.csv": "b\n2\n"})
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(mine, past, past); err != nil {
		t.Fatal(err)
	}

	files, err := UnpackArchive(mine, dir)
	if err != nil {
		t.Fatalf("UnpackArchive: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "sales.csv" {
		t.Errorf("files = %v, want only sales.csv", files)
	}
	if _, err := os.Stat(mine); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unpacked archive not removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated archive touched: %v", err)
	}

	if _, err := UnpackArchive(mine, dir); !errors.Is(err, dataset.ErrNoArchive) {
		t.Errorf("second unpack: err = %v, want ErrNoArchive", err)
	}
}

func TestLatestArchivePicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := writeZip(t, dir, "old.zip", map[string]string{"a.csv": "a\n"})
	newer := writeZip(t, dir, "new.zip", map[string]string{"b.csv": "b\n"})
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := LatestArchive(dir)
	if err != nil {
		t.Fatalf("LatestArchive: %v", err)
	}
	if got != newer {
		t.Errorf("got %s, want %s", got, newer)
	}
}

func TestRegistryResolve(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		wantErr error
	}{
		{"a.csv", nil},
		{"gone.csv", dataset.ErrFileNotFound},
		{"../a.csv", dataset.ErrFileNotFound},
		{"/etc/passwd", dataset.ErrFileNotFound},
		{"", dataset.ErrFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := reg.Resolve(tt.name)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if path != filepath.Join(dir, tt.name) {
					t.Errorf("path = %q", path)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistrySaveLatestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	reg := NewRegistry(dir)

	files, err := reg.List()
	if err != nil || len(files) != 0 {
		t.Fatalf("missing dir listing = %v, %v", files, err)
	}

	name, err := reg.Save("../../uploads/sales.csv", strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "sales.csv" {
		t.Errorf("stored name = %q", name)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, name), past, past); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Save("zz.CSV", strings.NewReader("c\n3\n")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	latest, ok, err := reg.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest: %v %v", ok, err)
	}
	if latest.Name != "zz.CSV" {
		t.Errorf("latest = %q, want zz.CSV", latest.Name)
	}

	files, _ = reg.List()
	if len(files) != 2 {
		t.Errorf("listing has %d files, want 2 csv files", len(files))
	}

	removed, err := reg.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d entries, want 3", removed)
	}
	if reg.Exists(name) {
		t.Error("file still resolvable after Clear")
	}
	if _, ok, _ := reg.Latest(); ok {
		t.Error("Latest should report nothing after Clear")
	}
}
