// Package export writes tables as delimited text.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/Fillereine/MathE/internal/table"
)

// Download file names.
const (
	CleanedFileName  = "MathE_dataset_cleaned.csv"
	OriginalFileName = "MathE_dataset_original.csv"
)

// DefaultDelimiter is the separator downstream consumers expect.
const DefaultDelimiter = ';'

// Options controls CSV output.
type Options struct {
	Delimiter rune // defaults to DefaultDelimiter
	BOM       bool // prefix a UTF-8 byte order mark
}

// DefaultOptions returns semicolon separated output without a BOM.
func DefaultOptions() Options {
	return Options{Delimiter: DefaultDelimiter}
}

// ParseDelimiter accepts a single-character separator such as ";" or ",".
// The names "tab", "comma" and "semicolon" are also recognized. An empty
// string selects DefaultDelimiter.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return DefaultDelimiter, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || !validDelim(r) {
		return 0, fmt.Errorf("invalid separator %q", s)
	}
	return r, nil
}

func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// WriteCSV writes the header and every row of t.
func WriteCSV(w io.Writer, t *table.Table, opts Options) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if !validDelim(opts.Delimiter) {
		return fmt.Errorf("invalid separator %q", opts.Delimiter)
	}
	if opts.BOM {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}

// Bytes renders t as CSV.
func Bytes(t *table.Table, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
