// Package kaggle downloads dataset archives from the Kaggle public API.
package kaggle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// DefaultBaseURL is the Kaggle public API root.
const DefaultBaseURL = "https://www.kaggle.com/api/v1"

// DefaultTimeout bounds a whole download.
const DefaultTimeout = 5 * time.Minute

// StatusError describes a non-2xx response. It unwraps to
// dataset.ErrAuthentication for 401/403 and dataset.ErrRemote otherwise.
type StatusError struct {
	StatusCode int
	Slug       string
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("kaggle rejected credentials for %s: status=%d", e.Slug, e.StatusCode)
	case http.StatusNotFound:
		return fmt.Sprintf("kaggle dataset %s not found", e.Slug)
	}
	return fmt.Sprintf("kaggle download %s: status=%d", e.Slug, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return dataset.ErrAuthentication
	}
	return dataset.ErrRemote
}

// Client fetches dataset archives.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
}

// NewClient returns a client for baseURL. Empty baseURL means DefaultBaseURL;
// a non-positive timeout means DefaultTimeout.
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		creds:      creds,
	}
}

// HasCredentials reports whether downloads can authenticate.
func (c *Client) HasCredentials() bool {
	return c.creds.Valid()
}

// Download writes the archive for ref into dir as {name}.zip and returns its
// path. The file appears only after the body was fully received.
func (c *Client) Download(ctx context.Context, ref dataset.Reference, dir string) (string, error) {
	if ref.Owner == "" || ref.Name == "" {
		return "", fmt.Errorf("%w: %q", dataset.ErrInvalidReference, ref.Slug())
	}
	if !c.creds.Valid() {
		return "", fmt.Errorf("%w: %v", dataset.ErrAuthentication, ErrNoCredentials)
	}

	endpoint := fmt.Sprintf("%s/datasets/download/%s/%s",
		c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Key)
	req.Header.Set("Accept", "application/zip, application/octet-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", dataset.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", &StatusError{StatusCode: resp.StatusCode, Slug: ref.Slug()}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		cleanup()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: download interrupted: %v", dataset.ErrRemote, err)
		}
		return "", fmt.Errorf("%w: read body: %v", dataset.ErrRemote, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	dest := filepath.Join(dir, ref.Name+".zip")
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move archive into place: %w", err)
	}

	slog.InfoContext(ctx, "dataset archive downloaded",
		"slug", ref.Slug(),
		"path", dest,
		"size", humanize.Bytes(uint64(n)),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return dest, nil
}
