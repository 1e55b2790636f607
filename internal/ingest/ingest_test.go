package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Fillereine/MathE/internal/table"
)

func load(t *testing.T, name, data string) (*table.Table, *Report) {
	t.Helper()
	tbl, rep, err := LoadWithReport(context.Background(), &RawFile{Name: name, Data: []byte(data)})
	if err != nil {
		t.Fatalf("LoadWithReport(%s) error = %v", name, err)
	}
	return tbl, rep
}

func TestLoadNilIsNoop(t *testing.T) {
	tbl, err := Load(context.Background(), nil)
	if err != nil || tbl != nil {
		t.Errorf("Load(nil) = %v, %v; want nil, nil", tbl, err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"data.csv", FormatCSV, false},
		{"DATA.CSV", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"records.json", FormatJSON, false},
		{"old.xls", "", true},
		{"notes.txt", "", true},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("DetectFormat() error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("DetectFormat() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(context.Background(), &RawFile{Name: "data.txt", Data: []byte("a,b\n1,2")})
	var ie *IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *IngestError", err)
	}
	if ie.Kind != KindUnsupportedFormat {
		t.Errorf("Kind = %v, want UnsupportedFormat", ie.Kind)
	}
	if errors.Is(err, ErrParse) {
		t.Error("unsupported format should not match ErrParse")
	}
	if !strings.Contains(err.Error(), "data.txt") {
		t.Errorf("message %q should name the file", err.Error())
	}
}

func TestLoadCSV(t *testing.T) {
	tbl, rep := load(t, "mathe.csv", "a,b\n1,x\n2,y\n,z\n4,w\n5,v")

	if tbl.RowCount() != 5 {
		t.Fatalf("RowCount() = %d, want 5", tbl.RowCount())
	}
	a, _ := tbl.Column("a")
	b, _ := tbl.Column("b")
	if a.Type != table.TypeNumeric {
		t.Errorf("a.Type = %v, want numeric", a.Type)
	}
	if b.Type != table.TypeText {
		t.Errorf("b.Type = %v, want text", b.Type)
	}
	if !a.IsMissing(2) {
		t.Error("a[2] should be missing")
	}
	if a.Numbers[3].Float64 != 4 {
		t.Errorf("a[3] = %v, want 4", a.Numbers[3].Float64)
	}
	if rep.Format != FormatCSV || rep.Encoding != EncodingUTF8 || rep.SkippedRows != 0 {
		t.Errorf("report = %+v", rep)
	}
}

func TestLoadCSVSkipsMalformedRows(t *testing.T) {
	data := "a,b\n1,x\n2,y,extra\n3,z\n4,w\n5,v\n"
	tbl, rep := load(t, "bad.csv", data)

	if tbl.RowCount() != 4 {
		t.Errorf("RowCount() = %d, want 4", tbl.RowCount())
	}
	if rep.SkippedRows != 1 {
		t.Errorf("SkippedRows = %d, want 1", rep.SkippedRows)
	}
	if len(rep.SkippedLines) != 1 || rep.SkippedLines[0].Line != 3 {
		t.Errorf("SkippedLines = %+v, want line 3", rep.SkippedLines)
	}

	tbl, rep = load(t, "short.csv", "a,b,c\n1,2,3\n4\n5,6,7\n")
	if tbl.RowCount() != 2 || rep.SkippedRows != 1 {
		t.Errorf("short row: RowCount() = %d, SkippedRows = %d; want 2, 1", tbl.RowCount(), rep.SkippedRows)
	}
}

func TestLoadCSVLatin1Fallback(t *testing.T) {
	data := "name,city\nJos\xe9,S\xe3o Paulo\nAna,Lisboa\n"
	tbl, rep := load(t, "legacy.csv", data)

	if rep.Encoding != EncodingLatin1 {
		t.Errorf("Encoding = %q, want %q", rep.Encoding, EncodingLatin1)
	}
	if got := tbl.Cell(0, 0); got != "José" {
		t.Errorf("name[0] = %q, want %q", got, "José")
	}
	if got := tbl.Cell(0, 1); got != "São Paulo" {
		t.Errorf("city[0] = %q, want %q", got, "São Paulo")
	}
}

func TestLoadCSVDetails(t *testing.T) {
	t.Run("bom is stripped", func(t *testing.T) {
		tbl, _ := load(t, "bom.csv", "\xef\xbb\xbfid,v\n1,2\n")
		if got := tbl.ColumnNames()[0]; got != "id" {
			t.Errorf("first column = %q, want %q", got, "id")
		}
	})

	t.Run("na markers are missing", func(t *testing.T) {
		tbl, _ := load(t, "na.csv", "v\n1\nNA\nnull\nN/A\n\"\"\n2\n")
		c, _ := tbl.Column("v")
		if c.Type != table.TypeNumeric {
			t.Errorf("Type = %v, want numeric", c.Type)
		}
		if c.MissingCount() != 4 {
			t.Errorf("MissingCount() = %d, want 4", c.MissingCount())
		}
	})

	t.Run("header mangling", func(t *testing.T) {
		tbl, _ := load(t, "dup.csv", "x,,x,x\n1,2,3,4\n")
		want := []string{"x", "Unnamed: 1", "x.1", "x.2"}
		got := tbl.ColumnNames()
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("column %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("blank lines ignored", func(t *testing.T) {
		tbl, rep := load(t, "blank.csv", "a\n1\n\n2\n\n")
		if tbl.RowCount() != 2 || rep.SkippedRows != 0 {
			t.Errorf("RowCount() = %d, SkippedRows = %d; want 2, 0", tbl.RowCount(), rep.SkippedRows)
		}
	})

	t.Run("header only", func(t *testing.T) {
		tbl, _ := load(t, "empty.csv", "a,b\n")
		if tbl.RowCount() != 0 || tbl.ColumnCount() != 2 {
			t.Errorf("shape = %dx%d, want 0x2", tbl.RowCount(), tbl.ColumnCount())
		}
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := Load(context.Background(), &RawFile{Name: "none.csv"})
		if !errors.Is(err, ErrParse) {
			t.Errorf("error = %v, want ErrParse", err)
		}
	})

	t.Run("mixed column is text", func(t *testing.T) {
		tbl, _ := load(t, "mixed.csv", "v\n1\ntwo\n3\n")
		c, _ := tbl.Column("v")
		if c.Type != table.TypeText {
			t.Errorf("Type = %v, want text", c.Type)
		}
		if c.Texts[0].String != "1" {
			t.Errorf("v[0] = %q, want %q", c.Texts[0].String, "1")
		}
	})
}

func TestLoadCSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, &RawFile{Name: "a.csv", Data: []byte("a\n1\n")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("SetCellValue(%s): %v", cell, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestLoadXLSX(t *testing.T) {
	data := workbook(t, [][]any{
		{"student", "score", "topic"},
		{"s1", 12.5, "Algebra"},
		{"s2", nil, "Calculus"},
		{"s3", 7, nil},
		{"s4", 3},
	})

	tbl, rep, err := LoadWithReport(context.Background(), &RawFile{Name: "MathE.xlsx", Data: data})
	if err != nil {
		t.Fatalf("LoadWithReport() error = %v", err)
	}
	if rep.Format != FormatXLSX || rep.Sheet != "Sheet1" {
		t.Errorf("report = %+v", rep)
	}
	if tbl.RowCount() != 4 {
		t.Fatalf("RowCount() = %d, want 4", tbl.RowCount())
	}

	score, _ := tbl.Column("score")
	if score.Type != table.TypeNumeric {
		t.Errorf("score.Type = %v, want numeric", score.Type)
	}
	if score.Numbers[0].Float64 != 12.5 || !score.IsMissing(1) || score.Numbers[2].Float64 != 7 {
		t.Errorf("score = %+v", score.Numbers)
	}
	topic, _ := tbl.Column("topic")
	if topic.Type != table.TypeText || topic.MissingCount() != 2 {
		t.Errorf("topic = %v with %d missing, want text with 2", topic.Type, topic.MissingCount())
	}
}

func TestLoadXLSXInvalid(t *testing.T) {
	_, err := Load(context.Background(), &RawFile{Name: "broken.xlsx", Data: []byte("not a zip")})
	var ie *IngestError
	if !errors.As(err, &ie) || ie.Kind != KindParse {
		t.Fatalf("error = %v, want parse IngestError", err)
	}
	if ie.Cause == nil {
		t.Error("parse error should carry its cause")
	}
}

func TestLoadJSON(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCols  []string
		wantRows  int
		wantTypes []table.ColumnType
	}{
		{
			name:      "records",
			data:      `[{"a": 1, "b": "x"}, {"a": 2.5, "b": null}, {"b": "z", "c": true}]`,
			wantCols:  []string{"a", "b", "c"},
			wantRows:  3,
			wantTypes: []table.ColumnType{table.TypeNumeric, table.TypeText, table.TypeText},
		},
		{
			name:      "columns of arrays",
			data:      `{"b": ["x", "y"], "a": [1, 2]}`,
			wantCols:  []string{"b", "a"},
			wantRows:  2,
			wantTypes: []table.ColumnType{table.TypeText, table.TypeNumeric},
		},
		{
			name:      "columns of index maps",
			data:      `{"a": {"1": 20, "0": 10, "10": 30}}`,
			wantCols:  []string{"a"},
			wantRows:  3,
			wantTypes: []table.ColumnType{table.TypeNumeric},
		},
		{
			name:      "nested values become text",
			data:      `[{"a": {"k": 1}}, {"a": [1, 2]}]`,
			wantCols:  []string{"a"},
			wantRows:  2,
			wantTypes: []table.ColumnType{table.TypeText},
		},
		{
			name:     "empty array",
			data:     `[]`,
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, rep := load(t, "data.json", tt.data)
			if rep.Format != FormatJSON {
				t.Errorf("Format = %q, want json", rep.Format)
			}
			if tbl.RowCount() != tt.wantRows {
				t.Errorf("RowCount() = %d, want %d", tbl.RowCount(), tt.wantRows)
			}
			names := tbl.ColumnNames()
			if len(names) != len(tt.wantCols) {
				t.Fatalf("columns = %v, want %v", names, tt.wantCols)
			}
			for i := range names {
				if names[i] != tt.wantCols[i] {
					t.Errorf("column %d = %q, want %q", i, names[i], tt.wantCols[i])
				}
				if tbl.Columns[i].Type != tt.wantTypes[i] {
					t.Errorf("column %q type = %v, want %v", names[i], tbl.Columns[i].Type, tt.wantTypes[i])
				}
			}
		})
	}
}

func TestLoadJSONIndexOrder(t *testing.T) {
	tbl, _ := load(t, "idx.json", `{"a": {"1": 20, "0": 10, "10": 30}}`)
	want := []string{"10", "20", "30"}
	for i, w := range want {
		if got := tbl.Cell(i, 0); got != w {
			t.Errorf("row %d = %q, want %q", i, got, w)
		}
	}
}

func TestLoadJSONStringsStayText(t *testing.T) {
	tbl, _ := load(t, "s.json", `[{"b": "NA"}, {"b": ""}, {"b": "3"}, {"b": null}]`)

	b, err := tbl.Column("b")
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != table.TypeText {
		t.Errorf("b type = %v, want text", b.Type)
	}
	if got := b.MissingCount(); got != 1 {
		t.Errorf("b missing = %d, want 1 (only null)", got)
	}
	for i, want := range []string{"NA", "", "3"} {
		if b.IsMissing(i) || b.Texts[i].String != want {
			t.Errorf("b[%d] = %+v, want %q", i, b.Texts[i], want)
		}
	}
}

func TestLoadJSONInvalid(t *testing.T) {
	inputs := []string{
		`{"a": [1, 2]`,
		`42`,
		`[1, 2]`,
		`{"a": 1}`,
		`[{"a": 1}] trailing`,
		``,
	}

	for _, in := range inputs {
		_, err := Load(context.Background(), &RawFile{Name: "bad.json", Data: []byte(in)})
		if !errors.Is(err, ErrParse) {
			t.Errorf("Load(%q) error = %v, want ErrParse", in, err)
		}
	}
}

func TestIngestErrorIs(t *testing.T) {
	err := &IngestError{Kind: KindEncodingFallbackExhausted, File: "x.csv", Cause: errors.New("boom")}
	if !errors.Is(err, ErrParse) {
		t.Error("exhausted encoding fallback should match ErrParse")
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Error("exhausted encoding fallback should not match ErrUnsupportedFormat")
	}
}

func TestLoadCSVFloatLiterals(t *testing.T) {
	tbl, _ := load(t, "f.csv", "i,f,e\n1,1.0,1e2\n2,2.0,3\n")
	want := [][]string{
		{"i", "f", "e"},
		{"1", "1.0", "100.0"},
		{"2", "2.0", "3.0"},
	}
	got := tbl.Records()
	for r := range want {
		for c := range want[r] {
			if got[r][c] != want[r][c] {
				t.Errorf("Records()[%d][%d] = %q, want %q", r, c, got[r][c], want[r][c])
			}
		}
	}
}
