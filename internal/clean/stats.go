package clean

import (
	"math"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Fillereine/MathE/internal/table"
)

// largeMagnitude is the largest absolute value whose square still fits in a
// float64 with room to sum. Columns holding bigger values are scaled down
// before their moments are taken.
const largeMagnitude = 1e150

// moments are the mean and population standard deviation of a column's
// valid values, both expressed in units of scale.
type moments struct {
	n        int
	scale    float64
	mean     float64
	std      float64
	constant bool
}

// columnMoments computes moments over the valid, finite values. Values are
// divided by the largest magnitude when it exceeds largeMagnitude, so sums
// and squared deviations never overflow.
func columnMoments(values []pgtype.Float8) moments {
	m := moments{scale: 1, constant: true}
	first := math.NaN()
	var maxAbs float64
	for _, v := range values {
		if !v.Valid || !finite(v.Float64) {
			continue
		}
		if m.n == 0 {
			first = v.Float64
		} else if v.Float64 != first {
			m.constant = false
		}
		maxAbs = math.Max(maxAbs, math.Abs(v.Float64))
		m.n++
	}
	if m.n == 0 {
		return m
	}
	if maxAbs > largeMagnitude {
		m.scale = maxAbs
	}

	var sum float64
	for _, v := range values {
		if v.Valid && finite(v.Float64) {
			sum += v.Float64 / m.scale
		}
	}
	m.mean = sum / float64(m.n)

	var sq float64
	for _, v := range values {
		if v.Valid && finite(v.Float64) {
			d := v.Float64/m.scale - m.mean
			sq += d * d
		}
	}
	m.std = math.Sqrt(sq / float64(m.n))
	if m.std == 0 {
		m.constant = true
	}
	return m
}

// Mean returns the mean in the column's own units.
func (m moments) Mean() float64 {
	return m.mean * m.scale
}

// Std returns the population standard deviation in the column's own units.
func (m moments) Std() float64 {
	return m.std * m.scale
}

// standardize maps x to (x-mean)/std without leaving the scaled range.
func (m moments) standardize(x float64) float64 {
	if m.constant {
		return 0
	}
	return (x/m.scale - m.mean) / m.std
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// MaskNonFinite marks, in place, every infinite or NaN numeric cell as
// missing and returns how many were masked per column.
func MaskNonFinite(t *table.Table) map[string]int {
	masked := map[string]int{}
	for _, c := range t.Columns {
		if c.Type != table.TypeNumeric {
			continue
		}
		for i := range c.Numbers {
			if c.Numbers[i].Valid && !finite(c.Numbers[i].Float64) {
				c.Numbers[i] = pgtype.Float8{}
				masked[c.Name]++
			}
		}
	}
	return masked
}
