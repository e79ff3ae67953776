package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// Defaults used by the dashboard.
const (
	MissingMapColumns = 30
	TopCategories     = 10
	PreviewColumns    = 5
	PreviewRows       = 10
)

// MissingView is a row-major null indicator matrix over the leading columns.
type MissingView struct {
	Columns []string `json:"columns"`
	Matrix  [][]bool `json:"matrix"`
	Total   int      `json:"total"`
	Empty   bool     `json:"empty"`
}

// MissingMap builds the null indicator matrix for the first limit columns.
// A non-positive limit means MissingMapColumns. Total counts nulls within
// the covered columns only.
func MissingMap(t *Table, limit int) MissingView {
	if limit <= 0 {
		limit = MissingMapColumns
	}
	cols := t.Columns()
	if len(cols) > limit {
		cols = cols[:limit]
	}
	mv := MissingView{
		Columns: make([]string, len(cols)),
		Matrix:  make([][]bool, t.NumRows()),
	}
	for j, c := range cols {
		mv.Columns[j] = c.Name
	}
	for i := range mv.Matrix {
		row := make([]bool, len(cols))
		for j, c := range cols {
			if c.IsNull(i) {
				row[j] = true
				mv.Total++
			}
		}
		mv.Matrix[i] = row
	}
	mv.Empty = mv.Total == 0
	return mv
}

// CorrMatrix is a symmetric Pearson correlation matrix. Undefined entries
// are NaN and encode as JSON null.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// MarshalJSON writes NaN cells as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				vals[i][j] = &row[j]
			}
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, vals})
}

// Correlation computes pairwise Pearson coefficients over numeric columns,
// using for each pair only rows where both cells are present. ok is false
// when the table has fewer than two numeric columns.
func Correlation(t *Table) (m *CorrMatrix, ok bool) {
	num := t.NumericColumns()
	if len(num) < 2 {
		return nil, false
	}
	k := len(num)
	m = &CorrMatrix{Columns: make([]string, k), Values: make([][]float64, k)}
	for i := range num {
		m.Columns[i] = num[i].Name
		m.Values[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r := pearson(num[i], num[j], t.NumRows())
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, true
}

func pearson(a, b *Column, rows int) float64 {
	var idx []int
	var n, sx, sy float64
	for i := 0; i < rows; i++ {
		x, okx := a.Float(i)
		y, oky := b.Float(i)
		if !okx || !oky {
			continue
		}
		idx = append(idx, i)
		n++
		sx += x
		sy += y
	}
	if n < 2 {
		return math.NaN()
	}
	mx, my := sx/n, sy/n
	var sxx, syy, sxy float64
	for _, i := range idx {
		dx := a.nums[i] - mx
		dy := b.nums[i] - my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	den := math.Sqrt(sxx * syy)
	if den == 0 || math.IsNaN(den) {
		return math.NaN()
	}
	r := sxy / den
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Bucket is one bar of a distribution.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DistributionView holds the value counts for one column.
type DistributionView struct {
	Column    string   `json:"column"`
	Kind      Kind     `json:"kind"`
	Buckets   []Bucket `json:"buckets"`
	Truncated bool     `json:"truncated"`
}

// Distribution counts the non-null values of col. Numeric and other columns
// list every value sorted ascending; categorical columns list the
// TopCategories most frequent values, ties broken by value.
func Distribution(t *Table, col string) (DistributionView, error) {
	c, err := t.Column(col)
	if err != nil {
		return DistributionView{}, err
	}
	dv := DistributionView{Column: c.Name, Kind: c.Kind}

	counts := make(map[string]int)
	nums := make(map[string]float64)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		k := c.key(i)
		counts[k]++
		if c.Kind == KindNumeric {
			nums[k] = c.nums[i]
		}
	}
	dv.Buckets = make([]Bucket, 0, len(counts))
	for v, n := range counts {
		dv.Buckets = append(dv.Buckets, Bucket{Value: v, Count: n})
	}

	switch c.Kind {
	case KindNumeric:
		sort.Slice(dv.Buckets, func(i, j int) bool {
			return nums[dv.Buckets[i].Value] < nums[dv.Buckets[j].Value]
		})
	case KindCategorical:
		sort.Slice(dv.Buckets, func(i, j int) bool {
			a, b := dv.Buckets[i], dv.Buckets[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.Value < b.Value
		})
		if len(dv.Buckets) > TopCategories {
			dv.Buckets = dv.Buckets[:TopCategories]
			dv.Truncated = true
		}
	default:
		sort.Slice(dv.Buckets, func(i, j int) bool {
			return dv.Buckets[i].Value < dv.Buckets[j].Value
		})
	}
	return dv, nil
}

// Values returns the distinct non-null values of col in order of first
// appearance, as they were written in the source.
func Values(t *Table, col string) ([]string, error) {
	c, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := []string{}
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		k := c.key(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c.raw[i])
	}
	return out, nil
}

// FilterResult is the subset of rows matching one column value.
type FilterResult struct {
	Column string
	Value  string
	Count  int
	Table  *Table
}

// Filter keeps the rows whose cell in col equals value. Numeric columns
// compare by value, so "3" matches "3.0"; other columns compare text
// exactly. A value that matches nothing is ErrValueNotFound.
func Filter(t *Table, col, value string) (FilterResult, error) {
	c, err := t.Column(col)
	if err != nil {
		return FilterResult{}, err
	}

	match := func(i int) bool { return c.raw[i] == value }
	if c.Kind == KindNumeric {
		want, ok := parseFloat(strings.TrimSpace(value))
		if !ok {
			return FilterResult{}, fmt.Errorf("%w: %q in %q", dataset.ErrValueNotFound, value, col)
		}
		match = func(i int) bool { return c.nums[i] == want }
	}

	var rows []int
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) && match(i) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return FilterResult{}, fmt.Errorf("%w: %q in %q", dataset.ErrValueNotFound, value, col)
	}
	sub := t.take(rows)
	return FilterResult{Column: c.Name, Value: value, Count: sub.NumRows(), Table: sub}, nil
}

// PreviewView is the head of a table restricted to some columns.
type PreviewView struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Preview returns the first n rows of the named columns. Empty cols means
// the first PreviewColumns columns; non-positive n means PreviewRows.
func Preview(t *Table, cols []string, n int) (PreviewView, error) {
	if n <= 0 {
		n = PreviewRows
	}
	if len(cols) == 0 {
		cols = DefaultPreviewColumns(t)
	}
	picked := make([]*Column, len(cols))
	for j, name := range cols {
		c, err := t.Column(name)
		if err != nil {
			return PreviewView{}, err
		}
		picked[j] = c
	}
	if n > t.NumRows() {
		n = t.NumRows()
	}
	pv := PreviewView{Columns: append([]string(nil), cols...), Rows: make([][]string, n)}
	for i := 0; i < n; i++ {
		row := make([]string, len(picked))
		for j, c := range picked {
			row[j] = c.String(i)
		}
		pv.Rows[i] = row
	}
	return pv, nil
}

// DefaultPreviewColumns returns the leading PreviewColumns column names.
func DefaultPreviewColumns(t *Table) []string {
	names := t.Names()
	if len(names) > PreviewColumns {
		names = names[:PreviewColumns]
	}
	return names
}
