package frame

import (
	"math"
	"sort"

	"github.com/dustin/go-humanize"
)

// Per-cell storage costs used for the deep memory estimate. Object cells pay
// for a pointer plus a boxed string header on top of their bytes; missing
// object cells are boxed floats.
const (
	fixedCellBytes    = 8
	pointerBytes      = 8
	stringHeaderBytes = 49
	boxedNullBytes    = 24
	indexBytes        = 128
)

// ColumnInfo is one row of the schema summary.
type ColumnInfo struct {
	Name   string `json:"name" yaml:"name"`
	DType  DType  `json:"dtype" yaml:"dtype"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Nulls  int    `json:"nulls" yaml:"nulls"`
	Unique int    `json:"unique" yaml:"unique"`
}

// Overview is the shape and footprint of a table together with its schema.
type Overview struct {
	Rows        int          `json:"rows" yaml:"rows"`
	Cols        int          `json:"cols" yaml:"cols"`
	MemoryBytes int64        `json:"memory_bytes" yaml:"memory_bytes"`
	MemoryKB    float64      `json:"memory_kb" yaml:"memory_kb"`
	Memory      string       `json:"memory" yaml:"memory"`
	Columns     []ColumnInfo `json:"columns" yaml:"columns"`
}

// Summarize computes the overview. It never fails; an empty table yields
// zero counts and only the index footprint.
func Summarize(t *Table) Overview {
	ov := Overview{
		Rows:    t.NumRows(),
		Cols:    t.NumCols(),
		Columns: make([]ColumnInfo, 0, t.NumCols()),
	}
	mem := int64(indexBytes)
	for _, c := range t.Columns() {
		mem += columnBytes(c)
		ov.Columns = append(ov.Columns, ColumnInfo{
			Name:   c.Name,
			DType:  c.DType,
			Kind:   c.Kind,
			Nulls:  c.NullCount(),
			Unique: distinctCount(c),
		})
	}
	ov.MemoryBytes = mem
	ov.MemoryKB = float64(mem) / 1024
	ov.Memory = humanize.IBytes(uint64(mem))
	return ov
}

func columnBytes(c *Column) int64 {
	if c.DType != DTypeObject {
		return int64(c.Len()) * fixedCellBytes
	}
	var n int64
	for i := 0; i < c.Len(); i++ {
		n += pointerBytes
		if c.IsNull(i) {
			n += boxedNullBytes
			continue
		}
		n += stringHeaderBytes + int64(len(c.raw[i]))
	}
	return n
}

func distinctCount(c *Column) int {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			seen[c.key(i)] = struct{}{}
		}
	}
	return len(seen)
}

// NumericStats are the descriptive statistics of a numeric column. Std is
// nil when fewer than two values are present.
type NumericStats struct {
	Mean float64  `json:"mean" yaml:"mean"`
	Std  *float64 `json:"std" yaml:"std"`
	Min  float64  `json:"min" yaml:"min"`
	P25  float64  `json:"p25" yaml:"p25"`
	P50  float64  `json:"p50" yaml:"p50"`
	P75  float64  `json:"p75" yaml:"p75"`
	Max  float64  `json:"max" yaml:"max"`
}

// CategoricalStats describe a non-numeric column.
type CategoricalStats struct {
	Unique int    `json:"unique" yaml:"unique"`
	Top    string `json:"top" yaml:"top"`
	Freq   int    `json:"freq" yaml:"freq"`
}

// ColumnStats is one row of the transposed describe table. Exactly one of
// Numeric and Categorical is set, except for columns with no values.
type ColumnStats struct {
	Column      string            `json:"column" yaml:"column"`
	Count       int               `json:"count" yaml:"count"`
	Numeric     *NumericStats     `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty" yaml:"categorical,omitempty"`
}

// Describe returns descriptive statistics per column. When the table has
// numeric columns only those are described; otherwise every column gets the
// count/unique/top/freq treatment.
func Describe(t *Table) []ColumnStats {
	numeric := t.NumericColumns()
	if len(numeric) > 0 {
		out := make([]ColumnStats, 0, len(numeric))
		for _, c := range numeric {
			out = append(out, describeNumeric(c))
		}
		return out
	}
	out := make([]ColumnStats, 0, t.NumCols())
	for _, c := range t.Columns() {
		out = append(out, describeCategorical(c))
	}
	return out
}

func describeNumeric(c *Column) ColumnStats {
	vals := make([]float64, 0, c.Len())
	var mean, m2 float64
	for i := 0; i < c.Len(); i++ {
		v, ok := c.Float(i)
		if !ok {
			continue
		}
		vals = append(vals, v)
		// Welford
		d := v - mean
		mean += d / float64(len(vals))
		m2 += d * (v - mean)
	}
	st := ColumnStats{Column: c.Name, Count: len(vals)}
	if len(vals) == 0 {
		return st
	}
	sort.Float64s(vals)
	ns := &NumericStats{
		Mean: mean,
		Min:  vals[0],
		P25:  quantile(vals, 0.25),
		P50:  quantile(vals, 0.50),
		P75:  quantile(vals, 0.75),
		Max:  vals[len(vals)-1],
	}
	if len(vals) > 1 {
		std := math.Sqrt(m2 / float64(len(vals)-1))
		ns.Std = &std
	}
	st.Numeric = ns
	return st
}

// quantile uses linear interpolation between closest ranks over sorted data.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func describeCategorical(c *Column) ColumnStats {
	counts := make(map[string]int)
	var order []string
	count := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		count++
		k := c.key(i)
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	st := ColumnStats{Column: c.Name, Count: count}
	if count == 0 {
		return st
	}
	cs := &CategoricalStats{Unique: len(counts)}
	for _, k := range order {
		if counts[k] > cs.Freq {
			cs.Top, cs.Freq = k, counts[k]
		}
	}
	st.Categorical = cs
	return st
}
