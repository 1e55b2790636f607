package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Fillereine/MathE/internal/table"
)

// naValues are the strings read as missing in text formats.
var naValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissingMarker reports whether s is read as a missing value.
func IsMissingMarker(s string) bool {
	return naValues[s]
}

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// parseNumber parses a decimal or infinity literal. Surrounding whitespace is
// ignored.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity":
		if strings.HasPrefix(s, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out of range still yields ±Inf, which is a value
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// cellKind records how a raw cell was produced by a parser.
type cellKind uint8

const (
	cellMissing cellKind = iota
	cellString           // text that may still parse as a number
	cellNumber           // already numeric in the source; text keeps the literal
	cellLiteral          // text that must stay text
)

type rawCell struct {
	kind cellKind
	text string
	num  float64
}

func textCell(s string) rawCell {
	if IsMissingMarker(s) {
		return rawCell{kind: cellMissing}
	}
	return rawCell{kind: cellString, text: s}
}

// columnBuilder accumulates raw cells for one column and decides its type
// once every cell has been seen.
type columnBuilder struct {
	name  string
	cells []rawCell
}

func (b *columnBuilder) add(c rawCell) {
	b.cells = append(b.cells, c)
}

// build returns a numeric column when every present cell is a number, and a
// text column otherwise. A column with no present cells is numeric.
func (b *columnBuilder) build() *table.Column {
	numeric := true
	for i, c := range b.cells {
		switch c.kind {
		case cellString:
			f, ok := parseNumber(c.text)
			if !ok {
				numeric = false
				break
			}
			b.cells[i].num = f
		case cellLiteral:
			numeric = false
		}
		if !numeric {
			break
		}
	}

	if numeric {
		out := make([]pgtype.Float8, len(b.cells))
		float := false
		for i, c := range b.cells {
			if c.kind != cellMissing {
				out[i] = pgtype.Float8{Float64: c.num, Valid: true}
				float = float || isFloatLiteral(c.text)
			}
		}
		col := table.NumericColumn(b.name, out)
		col.Float = float
		return col
	}

	out := make([]pgtype.Text, len(b.cells))
	for i, c := range b.cells {
		if c.kind != cellMissing {
			out[i] = pgtype.Text{String: c.text, Valid: true}
		}
	}
	return table.TextColumn(b.name, out)
}

// mangleHeader names blank headers "Unnamed: i" and suffixes repeated names
// with ".1", ".2" and so on.
func mangleHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; seen[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// buildTable turns a header and rectangular rows of raw cells into a table.
func buildTable(header []string, rows [][]rawCell) (*table.Table, error) {
	names := mangleHeader(header)
	builders := make([]*columnBuilder, len(names))
	for i, n := range names {
		builders[i] = &columnBuilder{name: n, cells: make([]rawCell, 0, len(rows))}
	}
	for _, row := range rows {
		for i, b := range builders {
			if i < len(row) {
				b.add(row[i])
			} else {
				b.add(rawCell{kind: cellMissing})
			}
		}
	}

	cols := make([]*table.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.build()
	}
	return table.New(cols...)
}

// isFloatLiteral reports whether a numeric literal is written as a float
// ("1.0", "2e3", "inf") rather than an integer.
func isFloatLiteral(s string) bool {
	return strings.ContainsAny(s, ".eEnN")
}
