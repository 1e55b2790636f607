package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/Fillereine/MathE/internal/table"
)

// parseJSON accepts an array of records, [{"a":1,"b":"x"},...], or an object
// of columns, {"a":[1,2]} or {"a":{"0":1,"1":2}}. Column order follows the
// first appearance of each key.
func parseJSON(name string, data []byte) (*table.Table, error) {
	dec := gojson.NewDecoder(NewBOMSkippingReader(bytes.NewReader(data)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, parseErr(name, fmt.Errorf("read JSON start: %w", err))
	}

	var cols *jsonColumns
	switch tok {
	case gojson.Delim('['):
		cols, err = readRecords(dec)
	case gojson.Delim('{'):
		cols, err = readColumns(dec)
	default:
		err = fmt.Errorf("expected array of records or object of columns, got %v", tok)
	}
	if err != nil {
		return nil, parseErr(name, err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, parseErr(name, errors.New("unexpected data after top-level value"))
	}

	return cols.table()
}

// jsonColumns collects cells per column while keeping key order.
type jsonColumns struct {
	order []string
	cells map[string][]rawCell
	rows  int
}

func newJSONColumns() *jsonColumns {
	return &jsonColumns{cells: make(map[string][]rawCell)}
}

func (c *jsonColumns) column(key string) []rawCell {
	if _, ok := c.cells[key]; !ok {
		c.order = append(c.order, key)
		c.cells[key] = nil
	}
	return c.cells[key]
}

func (c *jsonColumns) set(key string, row int, cell rawCell) {
	col := c.column(key)
	for len(col) <= row {
		col = append(col, rawCell{kind: cellMissing})
	}
	col[row] = cell
	c.cells[key] = col
	if row+1 > c.rows {
		c.rows = row + 1
	}
}

func (c *jsonColumns) table() (*table.Table, error) {
	rows := make([][]rawCell, c.rows)
	for r := range rows {
		rows[r] = make([]rawCell, len(c.order))
		for i, key := range c.order {
			if col := c.cells[key]; r < len(col) {
				rows[r][i] = col[r]
			}
		}
	}
	return buildTable(c.order, rows)
}

func readRecords(dec *gojson.Decoder) (*jsonColumns, error) {
	cols := newJSONColumns()
	for row := 0; dec.More(); row++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row, err)
		}
		if tok != gojson.Delim('{') {
			return nil, fmt.Errorf("record %d: expected object, got %v", row, tok)
		}
		if row+1 > cols.rows {
			cols.rows = row + 1
		}
		for dec.More() {
			key, err := readKey(dec)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", row, err)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("record %d, key %q: %w", row, key, err)
			}
			cols.set(key, row, jsonCell(v))
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("record %d: %w", row, err)
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return cols, nil
}

func readColumns(dec *gojson.Decoder) (*jsonColumns, error) {
	cols := newJSONColumns()
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		cols.column(key)
		switch vals := v.(type) {
		case []any:
			for row, cell := range vals {
				cols.set(key, row, jsonCell(cell))
			}
		case map[string]any:
			for row, idx := range sortedIndex(vals) {
				cols.set(key, row, jsonCell(vals[idx]))
			}
		default:
			return nil, fmt.Errorf("column %q: expected array or object of values", key)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return cols, nil
}

func expectDelim(dec *gojson.Decoder, want gojson.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("unexpected end of input, want %q", want)
	}
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *gojson.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// sortedIndex orders index labels numerically when they are all integers and
// lexically otherwise.
func sortedIndex(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	numeric := true
	for k := range m {
		keys = append(keys, k)
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// jsonCell converts a decoded JSON value. Numbers stay numeric, strings stay
// text, null is missing, and anything else is kept as its JSON text.
func jsonCell(v any) rawCell {
	switch val := v.(type) {
	case nil:
		return rawCell{kind: cellMissing}
	case gojson.Number:
		f, ok := parseNumber(val.String())
		if !ok {
			return rawCell{kind: cellLiteral, text: val.String()}
		}
		return rawCell{kind: cellNumber, text: val.String(), num: f}
	case string:
		return rawCell{kind: cellLiteral, text: val}
	case bool:
		return rawCell{kind: cellLiteral, text: strconv.FormatBool(val)}
	default:
		b, err := gojson.Marshal(val)
		if err != nil {
			return rawCell{kind: cellLiteral, text: fmt.Sprint(val)}
		}
		return rawCell{kind: cellLiteral, text: string(b)}
	}
}
