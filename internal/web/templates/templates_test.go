package templates

import (
	"bytes"
	"context"
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/staging"
)

func render(t *testing.T, d DashboardData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Dashboard(d).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestDashboardUnloaded(t *testing.T) {
	out := render(t, DashboardData{
		Files:    []staging.FileInfo{{Name: "a.csv", Size: 2048}, {Name: "b&c.csv"}},
		Selected: "a.csv",
		Flashes:  []session.Flash{{Kind: session.FlashError, Message: "Bad link", Action: "Check it", Code: "REF001"}},
	})

	for _, want := range []string{
		"<!doctype html>",
		"Explore a dataset",
		`<option value="a.csv" selected>a.csv (2.0 KiB)</option>`,
		"b&amp;c.csv",
		"REF001",
		"No kaggle.json found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "Dataset overview") {
		t.Error("overview rendered without a table")
	}
}

func TestDashboardLoaded(t *testing.T) {
	out := render(t, DashboardData{
		Filename: "sales.csv",
		Table: &TableData{
			Query:        url.Values{"rows": {"5"}, "fcol": {"region"}, "fval": {"north"}},
			AllColumns:   []string{"region", "units"},
			PreviewRows:  5,
			FilterColumn: "region",
			FilterValues: []string{"north", "south"},
			FilterValue:  "south",
			Missing:      frame.MissingView{Empty: true},
		},
	})

	for _, want := range []string{
		"<h1>sales.csv</h1>",
		`<option value="south" selected>south</option>`,
		`<option value="region" selected>region</option>`,
		`<input type="hidden" name="fcol" value="region">`,
		`<input type="number" name="rows" min="1" max="1000" value="5">`,
		"No missing values",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "Explore a dataset") {
		t.Error("empty state rendered with a table")
	}
}

func TestHiddenFieldsSkipsOwnedAndSorts(t *testing.T) {
	q := url.Values{"rows": {"5"}, "chart": {"units"}, "cols": {"b", "a"}}
	got := hiddenFields(q, "chart")
	want := []hiddenField{{"cols", "b"}, {"cols", "a"}, {"rows", "5"}}
	if len(got) != len(want) {
		t.Fatalf("hiddenFields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hiddenFields[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHeatClass(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1, "heat heat-pos-4"},
		{-0.5, "heat heat-neg-2"},
		{0.1, "heat heat-0"},
		{0, "heat heat-0"},
		{math.NaN(), "heat heat-na"},
	}
	for _, tt := range tests {
		if got := heatClass(tt.v); got != tt.want {
			t.Errorf("heatClass(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
