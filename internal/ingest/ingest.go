// Package ingest parses uploaded tabular files into tables.
//
// The format is chosen from the file name suffix alone:
//
//   - .csv   comma separated, UTF-8 with an ISO-8859-1 fallback; rows with the
//     wrong number of fields are skipped
//   - .xlsx  first worksheet of an Excel workbook
//   - .json  an array of records or an object of columns
//
// Every failure other than cancellation is an *IngestError whose message can
// be shown to the user.
// A nil *RawFile is absent input and loads as (nil, nil).
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fillereine/MathE/internal/table"
)

// Format is a supported input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// maxReportedLines caps the skipped lines listed in a Report.
const maxReportedLines = 50

// RawFile is a named upload payload.
type RawFile struct {
	Name string
	Data []byte
}

// ReadFile reads a file from disk into a RawFile.
func ReadFile(path string) (*RawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &RawFile{Name: filepath.Base(path), Data: data}, nil
}

// SkippedLine describes a CSV record dropped during parsing.
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report carries details of a successful load.
type Report struct {
	Format       Format        `json:"format"`
	Encoding     string        `json:"encoding,omitempty"`
	Sheet        string        `json:"sheet,omitempty"`
	SkippedRows  int           `json:"skipped_rows"`
	SkippedLines []SkippedLine `json:"skipped_lines,omitempty"`
	Cached       bool          `json:"cached"`
}

// Loader loads a raw file into a table.
type Loader interface {
	LoadWithReport(ctx context.Context, f *RawFile) (*table.Table, *Report, error)
}

// DetectFormat returns the format implied by a file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX, nil
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	}
	return "", unsupported(name)
}

// Load parses f into a table.
func Load(ctx context.Context, f *RawFile) (*table.Table, error) {
	t, _, err := LoadWithReport(ctx, f)
	return t, err
}

// LoadWithReport parses f and also returns details of how it was read.
func LoadWithReport(ctx context.Context, f *RawFile) (*table.Table, *Report, error) {
	if f == nil {
		return nil, nil, nil
	}
	format, err := DetectFormat(f.Name)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rep := &Report{Format: format}
	var t *table.Table
	switch format {
	case FormatCSV:
		t, err = parseCSV(ctx, f.Name, f.Data, rep)
	case FormatXLSX:
		t, err = parseXLSX(f.Name, f.Data, rep)
	case FormatJSON:
		t, err = parseJSON(f.Name, f.Data)
	}
	if err != nil {
		var ie *IngestError
		if !errors.As(err, &ie) && ctx.Err() == nil {
			err = parseErr(f.Name, err)
		}
		return nil, nil, err
	}
	return t, rep, nil
}

// Func adapts the package loader to the Loader interface.
type Func func(ctx context.Context, f *RawFile) (*table.Table, *Report, error)

// LoadWithReport calls fn.
func (fn Func) LoadWithReport(ctx context.Context, f *RawFile) (*table.Table, *Report, error) {
	return fn(ctx, f)
}

// Default is the uncached loader.
var Default Loader = Func(LoadWithReport)
