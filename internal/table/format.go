package table

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders a float in the shortest form that round-trips,
// switching to exponent notation for very small or very large magnitudes.
// Whole numbers keep a trailing ".0" so they stay distinguishable from codes.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// integral reports whether a numeric column is complete, not marked Float,
// and holds only whole numbers. Such columns render without a fractional part.
func (c *Column) integral() bool {
	if c.Type != TypeNumeric || c.Float {
		return false
	}
	for _, v := range c.Numbers {
		if !v.Valid || v.Float64 != math.Trunc(v.Float64) || math.Abs(v.Float64) >= 1e16 {
			return false
		}
	}
	return true
}

func (c *Column) cell(i int, whole bool) string {
	switch c.Type {
	case TypeNumeric:
		v := c.Numbers[i]
		if !v.Valid {
			return ""
		}
		if whole {
			return strconv.FormatInt(int64(v.Float64), 10)
		}
		return FormatFloat(v.Float64)
	case TypeText:
		if !c.Texts[i].Valid {
			return ""
		}
		return c.Texts[i].String
	case TypeCategory:
		return strconv.FormatInt(c.Codes[i], 10)
	}
	return ""
}

// Strings returns the display form of every cell. Missing cells are empty.
func (c *Column) Strings() []string {
	whole := c.integral()
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.cell(i, whole)
	}
	return out
}

// Cell returns the display form of the cell at row, col.
func (t *Table) Cell(row, col int) string {
	c := t.Columns[col]
	return c.cell(row, c.integral())
}

// Records returns the header followed by every row in display form.
func (t *Table) Records() [][]string {
	n := t.RowCount()
	out := make([][]string, n+1)
	out[0] = t.ColumnNames()
	cols := make([][]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Strings()
	}
	for r := 0; r < n; r++ {
		row := make([]string, len(cols))
		for ci := range cols {
			row[ci] = cols[ci][r]
		}
		out[r+1] = row
	}
	return out
}
