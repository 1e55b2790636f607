// Package clean turns a parsed table into a model-ready one.
//
// Clean applies four steps in a fixed order to a copy of its input:
//
//  1. Prune: drop columns with fewer than floor(threshold*rows) values.
//  2. Impute: fill missing numeric cells with the column mean.
//  3. Encode: replace text columns with integer codes by first occurrence.
//  4. Normalize: standardize every numeric column to mean 0 and std 1.
//
// Infinite values are treated as missing before pruning. Cleaning never
// fails. Steps that cannot apply are reported as warnings.
package clean

import (
	"fmt"
	"math"

	"github.com/Fillereine/MathE/internal/table"
)

// DefaultMissingThreshold is the minimum fraction of values a column needs
// to survive pruning.
const DefaultMissingThreshold = 0.6

// Config controls a cleaning run.
type Config struct {
	MissingThreshold float64
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{MissingThreshold: DefaultMissingThreshold}
}

// WarningCode identifies a non-fatal condition met while cleaning.
type WarningCode string

const (
	WarnEmptyNumericSet  WarningCode = "EmptyNumericSet"
	WarnThresholdClamped WarningCode = "ThresholdClamped"
	WarnNoObservedValues WarningCode = "NoObservedValues"
	WarnNonFiniteValues  WarningCode = "NonFiniteValues"
)

// Warning is a non-fatal condition. Column is empty for table-wide warnings.
type Warning struct {
	Code    WarningCode `json:"code"`
	Column  string      `json:"column,omitempty"`
	Message string      `json:"message"`
}

// Result is the outcome of Clean.
type Result struct {
	Table     *table.Table                  `json:"-"`
	Threshold float64                       `json:"threshold"`
	MinValues int                           `json:"min_values"`
	Dropped   []string                      `json:"dropped"`
	Imputed   map[string]int                `json:"imputed"`
	Encodings map[string]*EncodingMap       `json:"encodings"`
	Stats     map[string]NormalizationStats `json:"stats"`
	Warnings  []Warning                     `json:"warnings"`
}

// HasWarning reports whether a warning with the given code was recorded.
func (r *Result) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Clean runs every step on a copy of t. The input is never modified.
// A nil table yields a nil result.
func Clean(t *table.Table, cfg Config) *Result {
	if t == nil {
		return nil
	}

	res := &Result{
		Table:     t.Clone(),
		Imputed:   map[string]int{},
		Encodings: map[string]*EncodingMap{},
		Stats:     map[string]NormalizationStats{},
	}

	threshold, clamped := clampThreshold(cfg.MissingThreshold)
	if clamped {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnThresholdClamped,
			Message: fmt.Sprintf("missing threshold %v is outside [0, 1]; using %v", cfg.MissingThreshold, threshold),
		})
	}
	res.Threshold = threshold
	res.MinValues = MinValues(threshold, t.RowCount())

	masked := MaskNonFinite(res.Table)
	for _, c := range res.Table.Columns {
		if n := masked[c.Name]; n > 0 {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarnNonFiniteValues,
				Column:  c.Name,
				Message: fmt.Sprintf("column %q has %d infinite values; treated as missing", c.Name, n),
			})
		}
	}

	res.Dropped = Prune(res.Table, threshold)

	imputed, empty := Impute(res.Table)
	res.Imputed = imputed
	for _, name := range empty {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnNoObservedValues,
			Column:  name,
			Message: fmt.Sprintf("column %q has no values; filled with 0", name),
		})
	}

	res.Encodings = Encode(res.Table)

	stats, ok := Normalize(res.Table)
	res.Stats = stats
	if !ok {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnEmptyNumericSet,
			Message: "no numeric columns to normalize",
		})
	}

	return res
}

// clampThreshold maps the threshold into [0, 1]. NaN becomes the default.
func clampThreshold(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return DefaultMissingThreshold, true
	case v < 0:
		return 0, true
	case v > 1:
		return 1, true
	}
	return v, false
}

// MinValues is the number of values a column needs to survive pruning.
func MinValues(threshold float64, rows int) int {
	return int(math.Floor(threshold * float64(rows)))
}

// Prune removes, in place, every column holding fewer than
// floor(threshold*rows) values, and returns the names it removed.
func Prune(t *table.Table, threshold float64) []string {
	minValues := MinValues(threshold, t.RowCount())
	dropped := []string{}
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if c.NonMissingCount() >= minValues {
			kept = append(kept, c)
			continue
		}
		dropped = append(dropped, c.Name)
	}
	for i := len(kept); i < len(t.Columns); i++ {
		t.Columns[i] = nil
	}
	t.Columns = kept
	return dropped
}

// Impute fills, in place, the missing cells of every numeric column with the
// mean of its values. It returns the number of cells filled per column and
// the columns that had no values at all, which are filled with 0.
func Impute(t *table.Table) (filled map[string]int, empty []string) {
	filled = map[string]int{}
	for _, c := range t.Columns {
		if c.Type != table.TypeNumeric {
			continue
		}
		missing := c.MissingCount()
		if missing == 0 {
			continue
		}
		m := columnMoments(c.Numbers)
		mean := 0.0
		if m.n > 0 {
			mean = m.Mean()
		} else {
			empty = append(empty, c.Name)
		}
		for i := range c.Numbers {
			if !c.Numbers[i].Valid {
				c.Numbers[i].Float64 = mean
				c.Numbers[i].Valid = true
			}
		}
		c.Float = true
		filled[c.Name] = missing
	}
	return filled, empty
}
