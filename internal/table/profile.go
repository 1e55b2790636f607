package table

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNotNumeric is returned when a numeric-only operation targets a text column.
var ErrNotNumeric = errors.New("column is not numeric")

// ColumnInfo summarizes a single column.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	NonNull  int    `json:"non_null"`
	Missing  int    `json:"missing"`
	Position int    `json:"position"`
}

// Info returns one entry per column with its type and value counts.
func (t *Table) Info() []ColumnInfo {
	out := make([]ColumnInfo, len(t.Columns))
	for i, c := range t.Columns {
		nn := c.NonMissingCount()
		out[i] = ColumnInfo{
			Name:     c.Name,
			Type:     c.Type.String(),
			NonNull:  nn,
			Missing:  c.Len() - nn,
			Position: i,
		}
	}
	return out
}

// NonMissingCount returns the non-missing count of every column, by name.
func (t *Table) NonMissingCount() map[string]int {
	out := make(map[string]int, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c.NonMissingCount()
	}
	return out
}

// MissingCounts returns the missing count of every column, by name.
func (t *Table) MissingCounts() map[string]int {
	out := make(map[string]int, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c.MissingCount()
	}
	return out
}

// FilterOptions controls row filtering.
type FilterOptions struct {
	CaseSensitive bool
}

// Filter returns a new table with the rows whose cell in column contains
// value. Missing cells never match.
func (t *Table) Filter(column, value string, opts FilterOptions) (*Table, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if !opts.CaseSensitive {
		value = strings.ToLower(value)
	}
	cells := c.Strings()
	var rows []int
	for i, s := range cells {
		if c.IsMissing(i) {
			continue
		}
		if !opts.CaseSensitive {
			s = strings.ToLower(s)
		}
		if strings.Contains(s, value) {
			rows = append(rows, i)
		}
	}
	return t.selectRows(rows), nil
}

// Bin is one histogram bucket covering [Low, High). The last bucket is closed.
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Histogram counts the observed values of a numeric column into bins of
// equal width. Missing values are excluded.
func (t *Table) Histogram(column string, bins int) ([]Bin, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if !c.Type.IsNumeric() {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, column)
	}

	var values []float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < c.Len(); i++ {
		v, ok := c.FloatAt(i)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) == 0 {
		return []Bin{}, nil
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	out[bins-1].High = hi
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out, nil
}
