package clean

import (
	"github.com/Fillereine/MathE/internal/table"
)

// MissingLabel is the string a missing text cell takes before encoding.
const MissingLabel = "nan"

// EncodingMap is a bijection between the distinct strings of one column and
// their codes. Codes are assigned from 0 in order of first appearance.
type EncodingMap struct {
	Values []string         `json:"values"`
	codes  map[string]int64
}

func newEncodingMap() *EncodingMap {
	return &EncodingMap{codes: map[string]int64{}}
}

// code returns the code of s, assigning the next one if s is new.
func (m *EncodingMap) code(s string) int64 {
	if c, ok := m.codes[s]; ok {
		return c
	}
	c := int64(len(m.Values))
	m.codes[s] = c
	m.Values = append(m.Values, s)
	return c
}

// Code returns the code of s.
func (m *EncodingMap) Code(s string) (int64, bool) {
	c, ok := m.codes[s]
	return c, ok
}

// Value returns the string encoded as code.
func (m *EncodingMap) Value(code int64) (string, bool) {
	if code < 0 || code >= int64(len(m.Values)) {
		return "", false
	}
	return m.Values[code], true
}

// Len returns the number of distinct values.
func (m *EncodingMap) Len() int {
	return len(m.Values)
}

// Encode replaces, in place, every text column with integer codes. Missing
// cells are encoded as MissingLabel. Columns that are already numeric or
// encoded are left alone, so a second call is a no-op.
func Encode(t *table.Table) map[string]*EncodingMap {
	maps := map[string]*EncodingMap{}
	for i, c := range t.Columns {
		if c.Type != table.TypeText {
			continue
		}
		m := newEncodingMap()
		codes := make([]int64, len(c.Texts))
		for r, v := range c.Texts {
			s := MissingLabel
			if v.Valid {
				s = v.String
			}
			codes[r] = m.code(s)
		}
		t.Columns[i] = table.CategoryColumn(c.Name, codes)
		maps[c.Name] = m
	}
	return maps
}
