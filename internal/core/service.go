package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/datadash/internal/activity"
	"github.com/JonMunkholm/datadash/internal/dataset"
	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/logging"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/staging"
)

// DownloadTimeout bounds a fetch plus extraction.
var DownloadTimeout = 5 * time.Minute

// DefaultMaxUploadSize caps uploaded files.
const DefaultMaxUploadSize int64 = 100 << 20

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoFile is returned when an upload carries no file.
	ErrNoFile = errors.New("no file provided")
)

// Fetcher retrieves a dataset archive into dir and returns its path.
type Fetcher interface {
	Download(ctx context.Context, ref dataset.Reference, dir string) (string, error)
}

// Options tune a Service. Zero values select defaults.
type Options struct {
	Encoding               string
	MaxUploadSize          int64
	DownloadTimeout        time.Duration
	MaxConcurrentDownloads int
	DownloadWait           time.Duration
}

// Service orchestrates dataset acquisition and loading. It holds no
// per-user state; every operation takes the caller's session explicitly.
type Service struct {
	fetcher  Fetcher
	registry *staging.Registry
	limiter  *Limiter
	activity activity.Store

	readOpts        frame.ReadOptions
	maxUpload       int64
	downloadTimeout time.Duration
}

// NewService wires a service. A nil store records nothing.
func NewService(fetcher Fetcher, registry *staging.Registry, store activity.Store, opts Options) *Service {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = DownloadTimeout
	}
	return &Service{
		fetcher:         fetcher,
		registry:        registry,
		limiter:         NewLimiter(opts.MaxConcurrentDownloads, opts.DownloadWait),
		activity:        store,
		readOpts:        frame.ReadOptions{Encoding: opts.Encoding},
		maxUpload:       opts.MaxUploadSize,
		downloadTimeout: opts.DownloadTimeout,
	}
}

// Registry exposes the staging registry.
func (s *Service) Registry() *staging.Registry { return s.registry }

// Limiter exposes the download limiter for status and shutdown.
func (s *Service) Limiter() *Limiter { return s.limiter }

// MaxUploadSize returns the upload cap in bytes.
func (s *Service) MaxUploadSize() int64 { return s.maxUpload }

// DownloadResult describes a completed fetch and extraction.
type DownloadResult struct {
	Ref      dataset.Reference
	Files    []string // extracted CSV names, relative to the staging dir
	Selected string   // first extracted CSV, now selected in the session
}

// Download fetches and unpacks the dataset behind link. The session keeps
// its active table; the first extracted CSV becomes the selected file so
// the next Load picks it up.
func (s *Service) Download(ctx context.Context, sess *session.Session, link string) (res *DownloadResult, err error) {
	ref, err := dataset.ParseReference(link)
	if err != nil {
		return nil, err
	}
	defer func() { s.record(ctx, sess, activity.ActionDownload, ref.Slug(), nil, err) }()

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", dataset.ErrRemote)
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()

	log := logging.WithFields(ctx, "slug", ref.Slug())
	start := time.Now()
	log.Info("dataset download started")

	if err := s.registry.EnsureDir(); err != nil {
		return nil, err
	}
	archive, err := s.fetcher.Download(ctx, ref, s.registry.Dir())
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.Slug(), err)
	}
	var paths []string
	if archive != "" {
		paths, err = staging.UnpackArchive(archive, s.registry.Dir())
	} else {
		paths, err = staging.Unpack(s.registry.Dir())
	}
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", ref.Slug(), err)
	}

	res = &DownloadResult{Ref: ref}
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".csv") {
			continue
		}
		rel, relErr := filepath.Rel(s.registry.Dir(), p)
		if relErr != nil {
			rel = filepath.Base(p)
		}
		res.Files = append(res.Files, filepath.ToSlash(rel))
	}
	if len(res.Files) > 0 {
		res.Selected = res.Files[0]
		sess.SelectFile(res.Selected)
	}

	log.Info("dataset download completed",
		"files", len(paths),
		"csv_files", len(res.Files),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Files lists the CSV files in staging.
func (s *Service) Files() ([]staging.FileInfo, error) {
	return s.registry.List()
}

// SelectFile records name as the session's selected file after checking it
// exists. Nothing is loaded.
func (s *Service) SelectFile(sess *session.Session, name string) error {
	if _, err := s.registry.Resolve(name); err != nil {
		return err
	}
	sess.SelectFile(name)
	return nil
}

// LoadResult describes a freshly loaded table.
type LoadResult struct {
	Filename string `json:"filename"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
}

// LoadSelected parses the session's selected staging file and makes it the
// active table. On failure the session is unchanged.
func (s *Service) LoadSelected(ctx context.Context, sess *session.Session) (LoadResult, error) {
	name := sess.Snapshot().Selected
	if name == "" {
		return LoadResult{}, dataset.ErrNoSelection
	}
	return s.loadStaged(ctx, sess, name, activity.ActionLoad)
}

// LoadLatest loads the newest staging CSV. ok is false when staging holds
// no CSV.
func (s *Service) LoadLatest(ctx context.Context, sess *session.Session) (res LoadResult, ok bool, err error) {
	latest, ok, err := s.registry.Latest()
	if err != nil || !ok {
		return LoadResult{}, false, err
	}
	res, err = s.loadStaged(ctx, sess, latest.Name, activity.ActionLoad)
	return res, err == nil, err
}

// LoadUpload stores an uploaded CSV in staging, parses it and makes it the
// active table and selection.
func (s *Service) LoadUpload(ctx context.Context, sess *session.Session, filename string, r io.Reader) (LoadResult, error) {
	if strings.TrimSpace(filename) == "" || r == nil {
		return LoadResult{}, ErrNoFile
	}

	lr := &io.LimitedReader{R: r, N: s.maxUpload + 1}
	name, err := s.registry.Save(filename, lr)
	if err != nil {
		s.record(ctx, sess, activity.ActionUpload, filename, nil, err)
		return LoadResult{}, err
	}
	if lr.N <= 0 {
		if path, rerr := s.registry.Resolve(name); rerr == nil {
			_ = os.Remove(path)
		}
		err := fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxUpload)
		s.record(ctx, sess, activity.ActionUpload, filename, nil, err)
		return LoadResult{}, err
	}
	return s.loadStaged(ctx, sess, name, activity.ActionUpload)
}

func (s *Service) loadStaged(ctx context.Context, sess *session.Session, name string, action activity.Action) (LoadResult, error) {
	start := time.Now()
	path, err := s.registry.Resolve(name)
	if err != nil {
		s.record(ctx, sess, action, name, nil, err)
		return LoadResult{}, err
	}
	t, err := frame.ReadFile(path, s.readOpts)
	if err != nil {
		err = fmt.Errorf("load %s: %w", name, err)
		s.record(ctx, sess, action, name, nil, err)
		return LoadResult{}, err
	}

	sess.Set(t, filepath.Base(name))
	sess.SelectFile(name)
	s.record(ctx, sess, action, name, t, nil)

	logging.FromContext(ctx).Info("dataset loaded",
		"file", name,
		"rows", t.NumRows(),
		"cols", t.NumCols(),
		"bytes", t.SourceBytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return LoadResult{Filename: filepath.Base(name), Rows: t.NumRows(), Cols: t.NumCols()}, nil
}

// Table returns the session's active table or ErrNoDataset.
func (s *Service) Table(sess *session.Session) (*frame.Table, error) {
	t := sess.Table()
	if t == nil {
		return nil, dataset.ErrNoDataset
	}
	return t, nil
}

// SourceMissing reports whether the session's loaded file has disappeared
// from staging, which happens after a staging clear.
func (s *Service) SourceMissing(sess *session.Session) bool {
	st := sess.Snapshot()
	if !st.Loaded() || st.Selected == "" {
		return false
	}
	return !s.registry.Exists(st.Selected)
}

// ClearDataset drops the session's table, filename and selection. Staging
// files are untouched.
func (s *Service) ClearDataset(ctx context.Context, sess *session.Session) {
	target := sess.Snapshot().Filename
	sess.Clear()
	s.record(ctx, sess, activity.ActionClearDataset, target, nil, nil)
}

// ClearStaging deletes every file in staging. Loaded tables stay in memory.
func (s *Service) ClearStaging(ctx context.Context, sess *session.Session) (int, error) {
	n, err := s.registry.Clear()
	s.record(ctx, sess, activity.ActionClearStaging, s.registry.Dir(), nil, err)
	if err != nil {
		return n, err
	}
	logging.FromContext(ctx).Info("staging directory cleared", "removed", n)
	return n, nil
}

// Export writes the session's active table as CSV.
func (s *Service) Export(w io.Writer, sess *session.Session) error {
	t, err := s.Table(sess)
	if err != nil {
		return err
	}
	return frame.WriteCSV(w, t)
}

// Recent returns the latest activity entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]activity.Entry, error) {
	if s.activity == nil {
		return nil, nil
	}
	return s.activity.Recent(ctx, limit)
}

// record writes an activity entry. Failures are logged only.
func (s *Service) record(ctx context.Context, sess *session.Session, action activity.Action, target string, t *frame.Table, opErr error) {
	if s.activity == nil {
		return
	}
	e := activity.Entry{SessionID: sess.ID, Action: action, Target: target}
	if t != nil {
		e.Rows, e.Cols = t.NumRows(), t.NumCols()
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	if err := s.activity.Record(context.WithoutCancel(ctx), e); err != nil {
		logging.FromContext(ctx).Warn("activity record failed", "action", action, "error", err)
	}
}
