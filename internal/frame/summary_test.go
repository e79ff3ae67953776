package frame

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hundredRows builds a 3-column, 100-row CSV with 5 nulls in "score".
func hundredRows() string {
	var b strings.Builder
	b.WriteString("id,score,label\n")
	for i := 0; i < 100; i++ {
		score := fmt.Sprintf("%d.5", i)
		if i%20 == 0 {
			score = ""
		}
		fmt.Fprintf(&b, "%d,%s,l%d\n", i, score, i%7)
	}
	return b.String()
}

func TestSummarizeNullCounts(t *testing.T) {
	ov := Summarize(mustRead(t, hundredRows()))

	assert.Equal(t, 100, ov.Rows)
	assert.Equal(t, 3, ov.Cols)
	require.Len(t, ov.Columns, 3)

	nulls := map[string]int{}
	for _, c := range ov.Columns {
		nulls[c.Name] = c.Nulls
	}
	assert.Equal(t, map[string]int{"id": 0, "score": 5, "label": 0}, nulls)
	assert.Equal(t, 100, ov.Columns[0].Unique)
	assert.Equal(t, 95, ov.Columns[1].Unique)
	assert.Equal(t, 7, ov.Columns[2].Unique)
}

func TestSummarizeEmptyTable(t *testing.T) {
	ov := Summarize(mustRead(t, "a,b,c\n"))

	assert.Equal(t, 0, ov.Rows)
	assert.Equal(t, 3, ov.Cols)
	require.Len(t, ov.Columns, 3)
	for _, c := range ov.Columns {
		assert.Zero(t, c.Nulls, c.Name)
		assert.Zero(t, c.Unique, c.Name)
	}
	assert.Equal(t, int64(indexBytes), ov.MemoryBytes)
}

func TestSummarizeZeroColumns(t *testing.T) {
	ov := Summarize(newTable(nil, 0))
	assert.Equal(t, 0, ov.Cols)
	assert.Empty(t, ov.Columns)
}

func TestSummarizeMemory(t *testing.T) {
	// 2 rows: int column 16 bytes; object column (8+49+2) + (8+24).
	ov := Summarize(mustRead(t, "n,s\n1,ab\n2,\n"))
	want := int64(indexBytes + 16 + 59 + 32)
	assert.Equal(t, want, ov.MemoryBytes)
	assert.InDelta(t, float64(want)/1024, ov.MemoryKB, 1e-9)
	assert.NotEmpty(t, ov.Memory)
}

func TestDescribeNumeric(t *testing.T) {
	stats := Describe(mustRead(t, "x,name\n1,a\n2,b\n3,c\n4,d\n,e\n"))
	require.Len(t, stats, 1)

	st := stats[0]
	assert.Equal(t, "x", st.Column)
	assert.Equal(t, 4, st.Count)
	require.NotNil(t, st.Numeric)
	assert.InDelta(t, 2.5, st.Numeric.Mean, 1e-9)
	require.NotNil(t, st.Numeric.Std)
	assert.InDelta(t, math.Sqrt(5.0/3.0), *st.Numeric.Std, 1e-9)
	assert.Equal(t, 1.0, st.Numeric.Min)
	assert.InDelta(t, 1.75, st.Numeric.P25, 1e-9)
	assert.InDelta(t, 2.5, st.Numeric.P50, 1e-9)
	assert.InDelta(t, 3.25, st.Numeric.P75, 1e-9)
	assert.Equal(t, 4.0, st.Numeric.Max)
}

func TestDescribeSingleValueHasNoStd(t *testing.T) {
	stats := Describe(mustRead(t, "x\n7\n"))
	require.Len(t, stats, 1)
	require.NotNil(t, stats[0].Numeric)
	assert.Nil(t, stats[0].Numeric.Std)
}

func TestDescribeCategorical(t *testing.T) {
	stats := Describe(mustRead(t, "city,ok\nOslo,true\nBergen,false\nOslo,true\n,true\n"))
	require.Len(t, stats, 2)

	city := stats[0]
	assert.Equal(t, 3, city.Count)
	require.NotNil(t, city.Categorical)
	assert.Equal(t, CategoricalStats{Unique: 2, Top: "Oslo", Freq: 2}, *city.Categorical)

	ok := stats[1]
	assert.Equal(t, 4, ok.Count)
	require.NotNil(t, ok.Categorical)
	assert.Equal(t, "true", ok.Categorical.Top)
	assert.Equal(t, 3, ok.Categorical.Freq)
}
