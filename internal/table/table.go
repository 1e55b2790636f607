// Package table provides the in-memory tabular model shared by the ingestion,
// cleaning and export stages.
//
// A Table is an ordered list of named columns of equal length. Each column
// carries a ColumnType decided once at parse time, so later stages never
// re-inspect cell values to discover what a column holds.
//
// Cells are nullable scalars. Numeric cells are pgtype.Float8 and text cells
// are pgtype.Text; Valid=false marks a missing value. Category cells are the
// integer codes produced by encoding and are never missing.
package table

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// ColumnType is the logical type of a column.
type ColumnType int

const (
	TypeNumeric ColumnType = iota
	TypeText
	TypeCategory
)

// String returns the display name of a column type.
func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeText:
		return "text"
	case TypeCategory:
		return "category"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the type takes part in numeric normalization.
// Category codes are integers and count as numeric.
func (t ColumnType) IsNumeric() bool {
	return t == TypeNumeric || t == TypeCategory
}

// ErrColumnLength is returned when columns of a table differ in length.
var ErrColumnLength = errors.New("columns have different lengths")

// ErrDuplicateColumn is returned when two columns share a name.
var ErrDuplicateColumn = errors.New("duplicate column name")

// ErrColumnNotFound is returned when a named column does not exist.
var ErrColumnNotFound = errors.New("column not found")

// Column is a single named column. Only the slice matching Type is populated.
type Column struct {
	Name    string
	Type    ColumnType
	Numbers []pgtype.Float8 // TypeNumeric
	Texts   []pgtype.Text   // TypeText
	Codes   []int64         // TypeCategory

	// Float marks a numeric column as floating point. Its whole values
	// still render with a fractional part.
	Float bool
}

// NumericColumn builds a numeric column.
func NumericColumn(name string, cells []pgtype.Float8) *Column {
	return &Column{Name: name, Type: TypeNumeric, Numbers: cells}
}

// TextColumn builds a text column.
func TextColumn(name string, cells []pgtype.Text) *Column {
	return &Column{Name: name, Type: TypeText, Texts: cells}
}

// CategoryColumn builds an encoded category column.
func CategoryColumn(name string, codes []int64) *Column {
	return &Column{Name: name, Type: TypeCategory, Codes: codes}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	switch c.Type {
	case TypeNumeric:
		return len(c.Numbers)
	case TypeText:
		return len(c.Texts)
	case TypeCategory:
		return len(c.Codes)
	}
	return 0
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	switch c.Type {
	case TypeNumeric:
		return !c.Numbers[i].Valid
	case TypeText:
		return !c.Texts[i].Valid
	}
	return false
}

// NonMissingCount returns the number of cells with a value.
func (c *Column) NonMissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			n++
		}
	}
	return n
}

// MissingCount returns the number of cells without a value.
func (c *Column) MissingCount() int {
	return c.Len() - c.NonMissingCount()
}

// FloatAt returns row i as a float64. ok is false for missing cells and for
// text columns.
func (c *Column) FloatAt(i int) (v float64, ok bool) {
	switch c.Type {
	case TypeNumeric:
		return c.Numbers[i].Float64, c.Numbers[i].Valid
	case TypeCategory:
		return float64(c.Codes[i]), true
	}
	return 0, false
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Type: c.Type, Float: c.Float}
	if c.Numbers != nil {
		out.Numbers = append([]pgtype.Float8(nil), c.Numbers...)
	}
	if c.Texts != nil {
		out.Texts = append([]pgtype.Text(nil), c.Texts...)
	}
	if c.Codes != nil {
		out.Codes = append([]int64(nil), c.Codes...)
	}
	return out
}

// Table is an ordered sequence of equally long columns.
type Table struct {
	Columns []*Column
}

// New builds a table and checks that all columns have the same length and
// distinct names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{Columns: cols}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the table invariants.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = true
		if c.Len() != t.Columns[0].Len() {
			return fmt.Errorf("%w: %q has %d rows, %q has %d",
				ErrColumnLength, c.Name, c.Len(), t.Columns[0].Name, t.Columns[0].Len())
		}
	}
	return nil
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// ColumnNames returns column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, error) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// selectRows returns a new table holding only the given rows, in order.
func (t *Table) selectRows(rows []int) *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for ci, c := range t.Columns {
		nc := &Column{Name: c.Name, Type: c.Type}
		switch c.Type {
		case TypeNumeric:
			nc.Numbers = make([]pgtype.Float8, len(rows))
			for i, r := range rows {
				nc.Numbers[i] = c.Numbers[r]
			}
		case TypeText:
			nc.Texts = make([]pgtype.Text, len(rows))
			for i, r := range rows {
				nc.Texts[i] = c.Texts[r]
			}
		case TypeCategory:
			nc.Codes = make([]int64, len(rows))
			for i, r := range rows {
				nc.Codes[i] = c.Codes[r]
			}
		}
		out.Columns[ci] = nc
	}
	return out
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.RowCount() {
		n = t.RowCount()
	}
	if n < 0 {
		n = 0
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.selectRows(rows)
}
