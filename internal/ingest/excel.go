package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Fillereine/MathE/internal/table"
)

// parseXLSX reads the first worksheet of a workbook. The first row is the
// header; shorter rows are padded with missing cells.
func parseXLSX(name string, data []byte, rep *Report) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, parseErr(name, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseErr(name, errors.New("workbook has no sheets"))
	}
	rep.Sheet = sheets[0]

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseErr(name, fmt.Errorf("read sheet %q: %w", sheets[0], err))
	}

	// GetRows omits trailing empty rows but keeps interior ones.
	start := 0
	for start < len(rows) && isEmptyRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, parseErr(name, errNoColumns)
	}

	header := rows[start]
	width := len(header)
	for _, row := range rows[start+1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}

	body := make([][]rawCell, 0, len(rows)-start-1)
	for _, row := range rows[start+1:] {
		cells := make([]rawCell, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = textCell(row[i])
			}
		}
		body = append(body, cells)
	}

	return buildTable(header, body)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
