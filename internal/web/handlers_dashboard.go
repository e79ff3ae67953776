package web

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/logging"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/web/templates"
)

const (
	// maxPreviewRows caps the rows query parameter.
	maxPreviewRows = 1000
	// maxFilterOptions caps the value dropdown of the filter form.
	maxFilterOptions = 1000
	// dashboardActivity is how many activity entries the page lists.
	dashboardActivity = 10
)

// handleDashboard renders the page. A session's first visit loads the
// newest CSV in staging, if any.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	log := logging.FromContext(ctx)

	if freshSession(r) && sess.Table() == nil {
		res, ok, err := s.service.LoadLatest(ctx, sess)
		switch {
		case err != nil:
			sess.AddFlash(errorFlash(logError(r, err, statusFor(err))))
		case ok:
			sess.AddFlash(session.Flash{Kind: session.FlashInfo, Message: "Loaded latest file: " + res.Filename})
		}
	}

	files, err := s.service.Files()
	if err != nil {
		sess.AddFlash(errorFlash(logError(r, err, statusFor(err))))
	}

	st := sess.Snapshot()
	data := templates.DashboardData{
		HasCredentials: s.opts.HasCredentials,
		Files:          files,
		Selected:       st.Selected,
		Filename:       st.Filename,
		SourceMissing:  s.service.SourceMissing(sess),
		MaxUpload:      s.service.MaxUploadSize(),
	}

	var warnings []session.Flash
	if st.Table != nil {
		data.Table, warnings = buildTableData(r.URL.Query(), st.Table)
	}

	if data.Activity, err = s.service.Recent(ctx, dashboardActivity); err != nil {
		log.Warn("activity unavailable", "error", err)
	}
	data.Flashes = append(sess.TakeFlashes(), warnings...)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(data).Render(ctx, w); err != nil {
		log.Error("render dashboard", "error", err)
	}
}

// buildTableData computes every view the dashboard shows. Bad query
// parameters fall back to defaults and produce warnings.
func buildTableData(q url.Values, t *frame.Table) (*templates.TableData, []session.Flash) {
	var warnings []session.Flash
	warn := func(err error) {
		msg := core.MapError(err)
		warnings = append(warnings, session.Flash{Kind: session.FlashWarning, Message: msg.Message + ": " + err.Error(), Code: msg.Code})
	}

	td := &templates.TableData{
		Query:       q,
		Overview:    frame.Summarize(t),
		AllColumns:  t.Names(),
		PreviewRows: intParam(q.Get("rows"), frame.PreviewRows, maxPreviewRows),
		Stats:       frame.Describe(t),
		Missing:     frame.MissingMap(t, frame.MissingMapColumns),
	}

	pv, err := frame.Preview(t, q["cols"], td.PreviewRows)
	if err != nil {
		warn(err)
		pv, _ = frame.Preview(t, nil, td.PreviewRows)
	}
	td.Preview = pv

	if m, ok := frame.Correlation(t); ok {
		td.Correlation = m
	}

	if len(td.AllColumns) == 0 {
		return td, warnings
	}

	td.ChartColumn = q.Get("chart")
	if td.ChartColumn == "" {
		td.ChartColumn = td.AllColumns[0]
	}
	if dv, err := frame.Distribution(t, td.ChartColumn); err != nil {
		warn(err)
	} else {
		td.Distribution = &dv
	}

	td.FilterColumn = q.Get("fcol")
	if td.FilterColumn == "" {
		td.FilterColumn = td.AllColumns[0]
	}
	values, err := frame.Values(t, td.FilterColumn)
	if err != nil {
		warn(err)
		td.FilterColumn = ""
		return td, warnings
	}
	// A value left over from the previously chosen column is replaced by
	// the new column's first value.
	td.FilterValue = q.Get("fval")
	if !slices.Contains(values, td.FilterValue) {
		td.FilterValue = ""
		if len(values) > 0 {
			td.FilterValue = values[0]
		}
	}
	if len(values) > maxFilterOptions {
		values = values[:maxFilterOptions]
	}
	td.FilterValues = values

	if td.FilterValue != "" {
		res, err := frame.Filter(t, td.FilterColumn, td.FilterValue)
		if err != nil {
			td.FilterError = core.MapError(err).Message
		} else {
			head, _ := frame.Preview(res.Table, res.Table.Names(), frame.PreviewRows)
			td.Filtered, td.FilteredHead = &res, &head
		}
	}
	return td, warnings
}

func errorFlash(msg core.UserMessage) session.Flash {
	return session.Flash{Kind: session.FlashError, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// intParam parses a positive integer no larger than max, or returns def.
func intParam(v string, def, max int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
