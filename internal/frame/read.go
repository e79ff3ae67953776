package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datadash/internal/dataset"
)

// ReadOptions controls CSV parsing.
type ReadOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Encoding names the source character set (WHATWG label, e.g.
	// "windows-1252"). Empty means UTF-8.
	Encoding string
}

// naTokens are the cell values treated as missing, matching the defaults of
// the common dataframe readers so that uploaded files summarize the same way
// they would in a notebook.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNA reports whether s is read as a missing value.
func IsNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// ReadFile opens path and reads it as CSV.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, opts)
}

// Read parses a header row followed by records. Short rows are padded with
// nulls; rows longer than the header are a parse error.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	in, err := normalizeInput(r, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dataset.ErrParse, err)
	}

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no columns to parse", dataset.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", dataset.ErrParse, err)
	}
	names := headerNames(header)

	raw := make([][]string, len(names))
	rows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dataset.ErrParse, err)
		}
		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d",
				dataset.ErrParse, len(names), line, len(rec))
		}
		for j := range names {
			cell := ""
			if j < len(rec) {
				cell = rec[j]
			}
			raw[j] = append(raw[j], cell)
		}
		rows++
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		cells := raw[j]
		if cells == nil {
			cells = []string{}
		}
		cols[j] = buildColumn(name, cells)
	}

	t := newTable(cols, rows)
	t.SourceBytes = in.n
	return t, nil
}

// headerNames fills blank names and de-duplicates repeats as "x", "x.1", ...
func headerNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, h := range header {
		base := h
		if strings.TrimSpace(base) == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}
		name := base
		for k := next[base]; ; k++ {
			if k > 0 {
				name = base + "." + strconv.Itoa(k)
			}
			if !used[name] {
				next[base] = k + 1
				break
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// buildColumn tags the column once. Order of preference: int64, float64,
// bool, object. Integer columns containing nulls widen to float64, and a
// column with rows but no values at all is float64.
func buildColumn(name string, cells []string) *Column {
	c := &Column{Name: name, raw: cells, null: make([]bool, len(cells))}

	nonNull := 0
	allInt, allFloat, allBool := true, true, true
	for i, s := range cells {
		if IsNA(s) {
			c.null[i] = true
			continue
		}
		nonNull++
		v := strings.TrimSpace(s)
		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat && !allInt {
			if _, ok := parseFloat(v); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(v); !ok {
				allBool = false
			}
		}
	}

	switch {
	case len(cells) == 0:
		c.DType, c.Kind = DTypeObject, KindCategorical
	case nonNull == 0:
		c.DType, c.Kind = DTypeFloat64, KindNumeric
	case allInt && nonNull == len(cells):
		c.DType, c.Kind = DTypeInt64, KindNumeric
	case allInt || allFloat:
		c.DType, c.Kind = DTypeFloat64, KindNumeric
	case allBool && nonNull == len(cells):
		c.DType, c.Kind = DTypeBool, KindOther
	default:
		c.DType, c.Kind = DTypeObject, KindCategorical
	}

	if c.Kind == KindNumeric {
		c.nums = make([]float64, len(cells))
		for i, s := range cells {
			if c.null[i] {
				continue
			}
			c.nums[i], _ = parseFloat(strings.TrimSpace(s))
		}
	}
	return c
}

func parseFloat(s string) (float64, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") || strings.Contains(s, "_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
