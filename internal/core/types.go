package core

import (
	"time"

	"github.com/Fillereine/MathE/internal/clean"
	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/table"
)

// DefaultPreviewRows is how many rows a preview shows.
const DefaultPreviewRows = 5

// Preview is the first rows of a table in display form.
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewPreview renders the first n rows of t.
func NewPreview(t *table.Table, n int) Preview {
	records := t.Head(n).Records()
	return Preview{Columns: records[0], Rows: records[1:]}
}

// Profile describes a loaded table: its shape, a preview, per-column info,
// and the columns that have missing values.
type Profile struct {
	Rows    int                 `json:"rows"`
	Columns int                 `json:"columns"`
	Preview Preview             `json:"preview"`
	Info    []table.ColumnInfo  `json:"info"`
	Missing map[string]int      `json:"missing"`
	Report  *ingest.Report      `json:"report,omitempty"`
}

// Summary describes what cleaning changed.
type Summary struct {
	RowsIn      int              `json:"rows_in"`
	ColumnsIn   int              `json:"columns_in"`
	RowsOut     int              `json:"rows_out"`
	ColumnsOut  int              `json:"columns_out"`
	Threshold   float64          `json:"threshold"`
	MinValues   int              `json:"min_values"`
	Dropped     []string         `json:"dropped"`
	Imputed     map[string]int   `json:"imputed"`
	Encoded     []string         `json:"encoded"`
	Normalized  []string         `json:"normalized"`
	SkippedRows int              `json:"skipped_rows"`
	Warnings    []clean.Warning  `json:"warnings"`
	Duration    time.Duration    `json:"duration_ns"`
}

// Outcome is the result of a full pipeline run. Original is the table as
// loaded and is never modified by cleaning.
type Outcome struct {
	JobID    string         `json:"job_id"`
	Original *table.Table   `json:"-"`
	Cleaned  *table.Table   `json:"-"`
	Report   *ingest.Report `json:"report"`
	Result   *clean.Result  `json:"result"`
	Summary  Summary        `json:"summary"`
}
