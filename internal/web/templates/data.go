// Package templates renders the dashboard HTML as templ components.
//
// The .templ files are the source; run `templ generate` after editing them
// to refresh the *_templ.go files.
package templates

import (
	"math"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/datadash/internal/activity"
	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/staging"
)

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	Flashes        []session.Flash
	HasCredentials bool
	Files          []staging.FileInfo
	Selected       string
	Filename       string
	SourceMissing  bool
	MaxUpload      int64
	Table          *TableData // nil until a dataset is loaded
	Activity       []activity.Entry
}

// TableData holds the views computed for the active table.
type TableData struct {
	Query url.Values // current dashboard query, kept across forms

	Overview    frame.Overview
	AllColumns  []string
	Preview     frame.PreviewView
	PreviewRows int
	Stats       []frame.ColumnStats

	Missing     frame.MissingView
	Correlation *frame.CorrMatrix

	ChartColumn  string
	Distribution *frame.DistributionView

	FilterColumn string
	FilterValues []string
	FilterValue  string
	Filtered     *frame.FilterResult
	FilteredHead *frame.PreviewView
	FilterError  string
}

type hiddenField struct {
	Name, Value string
}

// hiddenFields lists the query parameters a form does not own, in key order.
func hiddenFields(q url.Values, owned ...string) []hiddenField {
	keys := make([]string, 0, len(q))
	for k := range q {
		if !slices.Contains(owned, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []hiddenField
	for _, k := range keys {
		for _, v := range q[k] {
			out = append(out, hiddenField{Name: k, Value: v})
		}
	}
	return out
}

func fileLabel(f staging.FileInfo) string {
	return f.Name + " (" + humanize.IBytes(uint64(f.Size)) + ")"
}

func distributionURL(col string) string {
	return "/chart/distribution/" + url.PathEscape(col) + ".png"
}

func missingSummary(mv frame.MissingView) string {
	return humanize.Comma(int64(mv.Total)) + " missing cells across the first " +
		strconv.Itoa(len(mv.Columns)) + " columns."
}

func missingLegend(mv frame.MissingView) string {
	return "Columns left to right: " + strings.Join(mv.Columns, ", ") + ". Yellow marks a missing cell."
}

func activityResult(e activity.Entry) string {
	switch {
	case e.Failed():
		return e.Error
	case e.Rows > 0 || e.Cols > 0:
		return strconv.Itoa(e.Rows) + " rows, " + strconv.Itoa(e.Cols) + " cols"
	}
	return "ok"
}

// statSpan is the number of stat cells a row without values spans.
func statSpan(stats []frame.ColumnStats) string {
	if len(stats) > 0 && stats[0].Numeric != nil {
		return "7"
	}
	return "3"
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func std(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return num(*v)
}

func corr(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// heatClass buckets a coefficient into one of nine diverging fills.
func heatClass(v float64) string {
	if math.IsNaN(v) {
		return "heat heat-na"
	}
	level := int(math.Round(math.Min(math.Abs(v), 1) * 4))
	switch {
	case level == 0:
		return "heat heat-0"
	case v < 0:
		return "heat heat-neg-" + strconv.Itoa(level)
	}
	return "heat heat-pos-" + strconv.Itoa(level)
}
