package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/Fillereine/MathE/internal/table"
)

// Encoding names reported for CSV payloads.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// ContextCheckInterval is how often, in rows, parsing checks for cancellation.
var ContextCheckInterval = 1000

var errNoColumns = errors.New("no columns to parse from file")

// decodeText returns the payload as UTF-8 text. Payloads that are not valid
// UTF-8 are decoded as ISO-8859-1.
func decodeText(name string, data []byte) ([]byte, string, error) {
	if utf8.Valid(data) {
		return data, EncodingUTF8, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", &IngestError{Kind: KindEncodingFallbackExhausted, File: name, Cause: err}
	}
	return decoded, EncodingLatin1, nil
}

// parseCSV reads comma separated records. The first record is the header.
// Records whose field count differs from the header are skipped and counted.
func parseCSV(ctx context.Context, name string, data []byte, rep *Report) (*table.Table, error) {
	text, enc, err := decodeText(name, data)
	if err != nil {
		return nil, err
	}
	rep.Encoding = enc

	r := csv.NewReader(NewBOMSkippingReader(bytes.NewReader(text)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, parseErr(name, errNoColumns)
	}
	if err != nil {
		return nil, parseErr(name, err)
	}

	var rows [][]rawCell
	for line := 0; ; line++ {
		if line%ContextCheckInterval == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseErr(name, err)
		}
		if len(rec) != len(header) {
			rep.SkippedRows++
			if len(rep.SkippedLines) < maxReportedLines {
				l, _ := r.FieldPos(0)
				rep.SkippedLines = append(rep.SkippedLines, SkippedLine{
					Line:   l,
					Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(rec)),
				})
			}
			continue
		}
		row := make([]rawCell, len(rec))
		for i, v := range rec {
			row[i] = textCell(v)
		}
		rows = append(rows, row)
	}

	return buildTable(header, rows)
}
