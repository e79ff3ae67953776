package kaggle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

var testCreds = Credentials{Username: "alice", Key: "secret"}

func TestDownloadWritesArchive(t *testing.T) {
	var gotPath, gotUser, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotKey, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK-archive-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL, testCreds, time.Second)
	ref := dataset.Reference{Source: dataset.SourceKaggle, Owner: "blastchar", Name: "telco-customer-churn"}

	path, err := c.Download(context.Background(), ref, dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if want := filepath.Join(dir, "telco-customer-churn.zip"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if gotPath != "/datasets/download/blastchar/telco-customer-churn" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotUser != "alice" || gotKey != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotKey)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if string(data) != "PK-archive-bytes" {
		t.Errorf("archive content = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("staging dir has %d entries, want 1 (no temp files left)", len(entries))
	}
}

func TestDownloadStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, dataset.ErrAuthentication},
		{"forbidden", http.StatusForbidden, dataset.ErrAuthentication},
		{"not found", http.StatusNotFound, dataset.ErrRemote},
		{"server error", http.StatusInternalServerError, dataset.ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			dir := t.TempDir()
			c := NewClient(srv.URL, testCreds, time.Second)
			_, err := c.Download(context.Background(), dataset.Reference{Owner: "o", Name: "n"}, dir)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status {
				t.Errorf("expected StatusError with status %d, got %v", tt.status, err)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("staging dir has %d entries after failure", len(entries))
			}
		})
	}
}

func TestDownloadWithoutCredentials(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", Credentials{}, time.Second)
	_, err := c.Download(context.Background(), dataset.Reference{Owner: "o", Name: "n"}, t.TempDir())
	if !errors.Is(err, dataset.ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
}

func TestDownloadTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, testCreds, time.Second)
	_, err := c.Download(context.Background(), dataset.Reference{Owner: "o", Name: "n"}, t.TempDir())
	if !errors.Is(err, dataset.ErrRemote) {
		t.Fatalf("err = %v, want ErrRemote", err)
	}
}

func TestDownloadInvalidReference(t *testing.T) {
	c := NewClient("", testCreds, 0)
	_, err := c.Download(context.Background(), dataset.Reference{Name: "n"}, t.TempDir())
	if !errors.Is(err, dataset.ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}
}
