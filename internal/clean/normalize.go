package clean

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Fillereine/MathE/internal/table"
)

// NormalizationStats are the parameters used to standardize one column.
type NormalizationStats struct {
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Constant bool    `json:"constant"`
}

// Normalize standardizes, in place, every numeric and encoded column to
// (x-mean)/std using the population standard deviation. A constant column
// becomes all zeros. Encoded columns turn numeric. Missing numeric cells, if
// any remain, stay missing and are ignored by the statistics, as are
// infinite cells, which become missing.
//
// ok is false when the table has no such column; nothing is changed then.
func Normalize(t *table.Table) (stats map[string]NormalizationStats, ok bool) {
	stats = map[string]NormalizationStats{}
	for i, c := range t.Columns {
		if !c.Type.IsNumeric() {
			continue
		}
		ok = true

		values := make([]pgtype.Float8, c.Len())
		for r := range values {
			v, valid := c.FloatAt(r)
			values[r] = pgtype.Float8{Float64: v, Valid: valid}
		}

		m := columnMoments(values)
		for r := range values {
			switch {
			case !values[r].Valid:
			case !finite(values[r].Float64):
				values[r] = pgtype.Float8{}
			default:
				values[r].Float64 = m.standardize(values[r].Float64)
			}
		}
		out := table.NumericColumn(c.Name, values)
		out.Float = true
		t.Columns[i] = out
		stats[c.Name] = NormalizationStats{Mean: m.Mean(), Std: m.Std(), Constant: m.constant}
	}
	return stats, ok
}
