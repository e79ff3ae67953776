package web

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/JonMunkholm/datadash/internal/dataset"
	"github.com/JonMunkholm/datadash/internal/frame"
)

const (
	// maxChartBars caps the bars drawn for one column.
	maxChartBars = 60

	missingHeight  = 400
	missingWidth   = 600
	missingMinCell = 4
)

var (
	barColor     = drawing.ColorFromHex("2563eb")
	missingColor = color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff}
	presentColor = color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff}
)

// handleDistributionChart serves /chart/distribution/{column}.png.
func (s *Server) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	col := strings.TrimSuffix(pathParam(r, "*"), ".png")

	dv, err := frame.Distribution(t, col)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(dv.Buckets) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: %q has no values", dataset.ErrValueNotFound, col))
		return
	}

	var buf bytes.Buffer
	if err := renderDistribution(&buf, dv); err != nil {
		s.respondError(w, r, err)
		return
	}
	writePNG(w, buf.Bytes())
}

// handleMissingChart serves the null indicator matrix as an image, or 204
// when the covered columns hold no nulls.
func (s *Server) handleMissingChart(w http.ResponseWriter, r *http.Request) {
	t, ok := s.activeTable(w, r)
	if !ok {
		return
	}
	mv := frame.MissingMap(t, frame.MissingMapColumns)
	if mv.Empty {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var buf bytes.Buffer
	if err := renderMissing(&buf, mv); err != nil {
		s.respondError(w, r, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}

// renderDistribution draws dv as a bar chart. Only the first maxChartBars
// buckets are drawn.
func renderDistribution(w io.Writer, dv frame.DistributionView) error {
	buckets := dv.Buckets
	title := "Distribution of " + dv.Column
	if len(buckets) > maxChartBars {
		buckets = buckets[:maxChartBars]
		title += fmt.Sprintf(" (first %d values)", maxChartBars)
	}

	style := chart.Style{FillColor: barColor, StrokeColor: barColor}
	bars := make([]chart.Value, len(buckets))
	top := 0
	for i, b := range buckets {
		bars[i] = chart.Value{Label: b.Value, Value: float64(b.Count), Style: style}
		if b.Count > top {
			top = b.Count
		}
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      900,
		Height:     420,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		BarWidth:   barWidth(len(bars)),
		YAxis: chart.YAxis{
			// Explicit range keeps single-valued counts drawable.
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top) * 1.1},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

func barWidth(n int) int {
	switch {
	case n <= 10:
		return 48
	case n <= 30:
		return 20
	default:
		return 10
	}
}

// renderMissing paints one vertical stripe per column. Rows are binned to
// at most missingHeight pixels; a bin is marked missing if any row in it
// is null.
func renderMissing(w io.Writer, mv frame.MissingView) error {
	rows, cols := len(mv.Matrix), len(mv.Columns)
	if rows == 0 || cols == 0 {
		return fmt.Errorf("missing map is empty")
	}
	cell := missingWidth / cols
	if cell < missingMinCell {
		cell = missingMinCell
	}
	height := rows
	if height > missingHeight {
		height = missingHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, cell*cols, height))
	for y := 0; y < height; y++ {
		lo, hi := y*rows/height, (y+1)*rows/height
		for c := 0; c < cols; c++ {
			fill := presentColor
			for i := lo; i < hi; i++ {
				if mv.Matrix[i][c] {
					fill = missingColor
					break
				}
			}
			for x := c * cell; x < (c+1)*cell; x++ {
				img.SetRGBA(x, y, fill)
			}
		}
	}
	return png.Encode(w, img)
}
