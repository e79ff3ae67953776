package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datadash/internal/dataset"
	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/staging"
)

// activeTable returns the session's table or writes the error response.
func (s *Server) activeTable(w http.ResponseWriter, r *http.Request) (*frame.Table, bool) {
	t, err := s.service.Table(sessionFrom(r))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return t, true
}

// pathParam returns a decoded path parameter. chi matches on RawPath when
// the path carries escapes, so the value may still be percent-encoded.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.Files()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []staging.FileInfo{}
	}
	writeJSON(w, map[string]any{
		"dir":   s.service.Registry().Dir(),
		"files": files,
	})
}

type sessionResponse struct {
	ID            string `json:"id"`
	Loaded        bool   `json:"loaded"`
	Filename      string `json:"filename,omitempty"`
	Selected      string `json:"selected,omitempty"`
	Rows          int    `json:"rows"`
	Cols          int    `json:"cols"`
	SourceMissing bool   `json:"source_missing"`
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	st := sess.Snapshot()
	resp := sessionResponse{
		ID:            st.ID,
		Loaded:        st.Loaded(),
		Filename:      st.Filename,
		Selected:      st.Selected,
		SourceMissing: s.service.SourceMissing(sess),
	}
	if st.Table != nil {
		resp.Rows, resp.Cols = st.Table.NumRows(), st.Table.NumCols()
	}
	writeJSON(w, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if t, ok := s.activeTable(w, r); ok {
		writeJSON(w, frame.Summarize(t))
	}
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if t, ok := s.activeTable(w, r); ok {
		writeJSON(w, frame.Describe(t))
	}
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	limit := intParam(r.URL.Query().Get("limit"), frame.MissingMapColumns, t.NumCols()+1)
	writeJSON(w, frame.MissingMap(t, limit))
}

// handleCorrelation answers 204 when fewer than two numeric columns exist.
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	m, ok := frame.Correlation(t)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	dv, err := frame.Distribution(t, pathParam(r, "column"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, dv)
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	col := pathParam(r, "column")
	values, err := frame.Values(t, col)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"column": col, "values": values})
}

type filterResponse struct {
	Column  string     `json:"column"`
	Value   string     `json:"value"`
	Count   int        `json:"count"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// handleFilter returns the match count and the first limit matching rows.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	col := q.Get("column")
	if col == "" {
		s.respondError(w, r, fmt.Errorf("%w: column is required", dataset.ErrColumnNotFound))
		return
	}
	if !q.Has("value") {
		s.respondError(w, r, fmt.Errorf("%w: value is required", dataset.ErrValueNotFound))
		return
	}

	res, err := frame.Filter(t, col, q.Get("value"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	head, err := frame.Preview(res.Table, res.Table.Names(), intParam(q.Get("limit"), frame.PreviewRows, res.Count))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, filterResponse{
		Column:  res.Column,
		Value:   res.Value,
		Count:   res.Count,
		Columns: head.Columns,
		Rows:    head.Rows,
	})
}

// handlePreview accepts columns as a comma list or repeated cols values.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var cols []string
	for _, v := range q["cols"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
	}
	pv, err := frame.Preview(t, cols, intParam(q.Get("rows"), frame.PreviewRows, maxPreviewRows))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, pv)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Recent(r.Context(), intParam(r.URL.Query().Get("limit"), 50, 500))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"entries": entries})
}

func (s *Server) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Limiter().Status())
}
