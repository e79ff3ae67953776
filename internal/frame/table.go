// Package frame holds the in-memory Active Table and every computation the
// dashboard derives from it.
//
// A Table is built once by Read and never mutated afterwards. Each column is
// tagged with a Kind at load time (numeric, categorical, other) and every
// view consults that tag instead of re-inspecting cell values:
//
//   - Summarize / Describe: schema, memory footprint, descriptive statistics
//   - MissingMap: null indicator matrix over the leading columns
//   - Correlation: pairwise Pearson over numeric columns
//   - Distribution: value counts for a single column
//   - Filter / Values: exact-match row subsets
//
// All functions are pure; callers recompute on every render.
package frame

import (
	"fmt"
	"math"
	"strconv"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// Kind classifies a column for view dispatch.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
	KindOther
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "other"
	}
}

// MarshalText lets Kind render as its name in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "numeric":
		*k = KindNumeric
	case "categorical":
		*k = KindCategorical
	case "other":
		*k = KindOther
	default:
		return fmt.Errorf("unknown column kind %q", b)
	}
	return nil
}

// DType is the declared storage type of a column.
type DType string

const (
	DTypeInt64   DType = "int64"
	DTypeFloat64 DType = "float64"
	DTypeBool    DType = "bool"
	DTypeObject  DType = "object"
)

// Column is a single typed column. Raw text is kept for every cell so exports
// reproduce the source verbatim; numeric columns also carry parsed values.
type Column struct {
	Name  string
	DType DType
	Kind  Kind

	raw  []string
	nums []float64 // only for KindNumeric
	null []bool
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.raw) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return c.null[i] }

// String returns the source text of cell i, or "" when null.
func (c *Column) String(i int) string {
	if c.null[i] {
		return ""
	}
	return c.raw[i]
}

// Float returns the numeric value of cell i. ok is false for nulls and
// non-numeric columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	if c.Kind != KindNumeric || c.null[i] {
		return 0, false
	}
	return c.nums[i], true
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, isNull := range c.null {
		if isNull {
			n++
		}
	}
	return n
}

// key returns the identity used for distinct-value counting. Numeric cells
// compare by value so "1" and "1.0" are the same value.
func (c *Column) key(i int) string {
	if c.Kind == KindNumeric {
		if c.DType == DTypeInt64 {
			return strconv.FormatInt(int64(c.nums[i]), 10)
		}
		return formatFloat(c.nums[i])
	}
	return c.raw[i]
}

// Table is an immutable, column-oriented dataset.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int

	// SourceBytes is the number of decoded bytes read to build the table.
	SourceBytes int64
}

func newTable(cols []*Column, rows int) *Table {
	t := &Table{cols: cols, rows: rows, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		t.index[c.Name] = i
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.cols }

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, name)
	}
	return t.cols[i], nil
}

// NumericColumns returns the columns tagged KindNumeric.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Row returns the text of row i across all columns.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.String(i)
	}
	return row
}

// take builds a new table from the given row indices, keeping column types.
func (t *Table) take(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for j, src := range t.cols {
		dst := &Column{
			Name:  src.Name,
			DType: src.DType,
			Kind:  src.Kind,
			raw:   make([]string, len(rows)),
			null:  make([]bool, len(rows)),
		}
		if src.nums != nil {
			dst.nums = make([]float64, len(rows))
		}
		for k, i := range rows {
			dst.raw[k] = src.raw[i]
			dst.null[k] = src.null[i]
			if src.nums != nil {
				dst.nums[k] = src.nums[i]
			}
		}
		cols[j] = dst
	}
	return newTable(cols, len(rows))
}

// formatFloat writes v without an exponent unless it is very large or
// very small, the way a dataframe prints float labels.
func formatFloat(v float64) string {
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
