package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/logging"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	res, err := s.service.Download(r.Context(), sess, r.FormValue("link"))
	if err != nil {
		s.failForm(w, r, sess, err)
		return
	}

	msg := fmt.Sprintf("Downloaded %s: %d CSV file(s) extracted.", res.Ref.Slug(), len(res.Files))
	if res.Selected != "" {
		msg += fmt.Sprintf(" Selected %s; press Load to open it.", res.Selected)
	} else {
		msg += " The archive held no CSV files."
	}
	s.succeedForm(w, r, sess, msg, map[string]any{
		"slug":     res.Ref.Slug(),
		"files":    res.Files,
		"selected": res.Selected,
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	name := r.FormValue("file")

	if err := s.service.SelectFile(sess, name); err != nil {
		s.failForm(w, r, sess, err)
		return
	}
	s.succeedForm(w, r, sess, "Selected "+name+".", map[string]string{"selected": name})
}

// handleLoad loads the selected file. A "file" form value selects it first.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if name := r.FormValue("file"); name != "" {
		if err := s.service.SelectFile(sess, name); err != nil {
			s.failForm(w, r, sess, err)
			return
		}
	}
	res, err := s.service.LoadSelected(r.Context(), sess)
	if err != nil {
		s.failForm(w, r, sess, err)
		return
	}
	s.succeedForm(w, r, sess, loadedMessage(res), res)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxUploadSize()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			err = fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, s.service.MaxUploadSize())
		} else {
			err = fmt.Errorf("%w: %v", core.ErrNoFile, err)
		}
		s.failForm(w, r, sess, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.failForm(w, r, sess, core.ErrNoFile)
		return
	}
	defer file.Close()

	res, err := s.service.LoadUpload(r.Context(), sess, header.Filename, file)
	if err != nil {
		s.failForm(w, r, sess, err)
		return
	}
	s.succeedForm(w, r, sess, loadedMessage(res), res)
}

func (s *Server) handleClearDataset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.service.ClearDataset(r.Context(), sess)
	s.succeedForm(w, r, sess, "Dataset cleared.", map[string]bool{"cleared": true})
}

func (s *Server) handleClearStaging(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	n, err := s.service.ClearStaging(r.Context(), sess)
	if err != nil {
		s.failForm(w, r, sess, err)
		return
	}
	s.succeedForm(w, r, sess, fmt.Sprintf("Removed %d item(s) from the data folder.", n), map[string]int{"removed": n})
}

// handleExport streams the active table as cleaned_data.csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if _, err := s.service.Table(sess); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+frame.ExportFilename+`"`)
	if err := s.service.Export(w, sess); err != nil {
		logging.FromContext(r.Context()).Error("export failed", "error", err)
	}
}

func loadedMessage(res core.LoadResult) string {
	return fmt.Sprintf("Loaded %s: %d rows, %d columns.", strings.TrimSpace(res.Filename), res.Rows, res.Cols)
}
