package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/dataset"
)

const sampleCSV = "id,city,score\n1,Oslo,2.5\n2,Bergen,\n3,Oslo,4.5\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func stage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

type zipFetcher struct{ files map[string]string }

func (f zipFetcher) Download(_ context.Context, ref dataset.Reference, dir string) (string, error) {
	path := filepath.Join(dir, ref.Name+".zip")
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	zw := zip.NewWriter(out)
	for name, body := range f.files {
		w, err := zw.Create(name)
		if err != nil {
			return "", err
		}
		if _, err := w.Write([]byte(body)); err != nil {
			return "", err
		}
	}
	return path, zw.Close()
}

func TestLs(t *testing.T) {
	dir := stage(t, map[string]string{"b.csv": sampleCSV, "a.csv": sampleCSV, "notes.txt": "x"})

	out, err := run(t, "ls", "--staging-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "a.csv")
	assert.Contains(t, out, "b.csv")
	assert.NotContains(t, out, "notes.txt")

	out, err = run(t, "ls", "--staging-dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "(no files)\n", out)
}

func TestInspectFormats(t *testing.T) {
	dir := stage(t, map[string]string{"cities.csv": sampleCSV})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "inspect", "cities.csv", "--staging-dir", dir, "--format", "json")
		require.NoError(t, err)
		var doc inspection
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, 3, doc.Overview.Rows)
		assert.Equal(t, 3, doc.Overview.Cols)
		require.Len(t, doc.Overview.Columns, 3)
		assert.Equal(t, 1, doc.Overview.Columns[2].Nulls)
		assert.Equal(t, 2, doc.Overview.Columns[1].Unique)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := run(t, "inspect", "cities.csv", "--staging-dir", dir, "-f", "yaml")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "cities.csv", doc["file"])
		assert.Contains(t, out, "memory_kb:")
	})

	t.Run("text", func(t *testing.T) {
		out, err := run(t, "inspect", "cities.csv", "--staging-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "cities.csv: 3 rows, 3 columns")
		assert.Contains(t, out, "COLUMN")
		assert.Contains(t, out, "score")
	})

	t.Run("path outside staging", func(t *testing.T) {
		out, err := run(t, "inspect", filepath.Join(dir, "cities.csv"), "--staging-dir", t.TempDir(), "-f", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"rows": 3`)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "inspect", "cities.csv", "--staging-dir", dir, "-f", "xml")
		assert.ErrorContains(t, err, "unknown format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, "inspect", "gone.csv", "--staging-dir", dir)
		assert.ErrorIs(t, err, dataset.ErrFileNotFound)
	})
}

func TestClear(t *testing.T) {
	dir := stage(t, map[string]string{"a.csv": sampleCSV, "b.zip": "PK"})

	out, err := run(t, "clear", "--staging-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 entries")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch(t *testing.T) {
	orig := newFetcher
	t.Cleanup(func() { newFetcher = orig })
	newFetcher = func(settings) (core.Fetcher, error) {
		return zipFetcher{files: map[string]string{"churn.csv": sampleCSV}}, nil
	}

	dir := t.TempDir()
	out, err := run(t, "fetch", "https://www.kaggle.com/datasets/blastchar/telco-customer-churn", "--staging-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded blastchar/telco-customer-churn")
	assert.Contains(t, out, "- churn.csv")

	_, err = os.Stat(filepath.Join(dir, "telco-customer-churn.zip"))
	assert.True(t, os.IsNotExist(err), "archive should be removed after extraction")

	_, err = run(t, "fetch", "not-a-link", "--staging-dir", dir)
	assert.ErrorIs(t, err, dataset.ErrInvalidReference)
}

func TestEnvOverridesDefault(t *testing.T) {
	dir := stage(t, map[string]string{"env.csv": sampleCSV})
	t.Setenv("DATADASH_STAGING_DIR", dir)

	out, err := run(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "env.csv")
}
