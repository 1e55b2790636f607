package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Fillereine/MathE/internal/clean"
	"github.com/Fillereine/MathE/internal/ingest"
)

func TestWriteCSV(t *testing.T) {
	tbl, err := ingest.Load(context.Background(), &ingest.RawFile{
		Name: "in.csv",
		Data: []byte("name,score,note\nAna,1.5,\"a;b\"\nBo,,x\n"),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "default semicolon",
			opts: Options{},
			want: "name;score;note\nAna;1.5;\"a;b\"\nBo;;x\n",
		},
		{
			name: "comma",
			opts: Options{Delimiter: ','},
			want: "name,score,note\nAna,1.5,a;b\nBo,,x\n",
		},
		{
			name: "bom",
			opts: Options{Delimiter: ';', BOM: true},
			want: "\xef\xbb\xbfname;score;note\nAna;1.5;\"a;b\"\nBo;;x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteCSV(&buf, tbl, tt.opts); err != nil {
				t.Fatalf("WriteCSV() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WriteCSV() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCSVInvalidDelimiter(t *testing.T) {
	tbl, _ := ingest.Load(context.Background(), &ingest.RawFile{Name: "in.csv", Data: []byte("a\n1\n")})
	if err := WriteCSV(&bytes.Buffer{}, tbl, Options{Delimiter: '"'}); err == nil {
		t.Error("WriteCSV() with quote delimiter should fail")
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", ';', false},
		{";", ';', false},
		{",", ',', false},
		{"tab", '\t', false},
		{"comma", ',', false},
		{"|", '|', false},
		{";;", 0, true},
		{"\"", 0, true},
		{"\n", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDelimiter(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDelimiter(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCleanedExportRoundTrip(t *testing.T) {
	src := &ingest.RawFile{Name: "mathe.csv", Data: []byte("a,b\n1,x\n2,y\n,z\n4,w\n5,v")}
	tbl, err := ingest.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	res := clean.Clean(tbl, clean.DefaultConfig())

	out, err := Bytes(res.Table, DefaultOptions())
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if lines[0] != "a;b" {
		t.Errorf("header = %q, want %q", lines[0], "a;b")
	}
	if len(lines) != 6 {
		t.Fatalf("lines = %d, want 6", len(lines))
	}
	if lines[3] != "0.0;0.0" {
		t.Errorf("row 3 = %q, want %q", lines[3], "0.0;0.0")
	}

	back, err := ingest.Load(context.Background(), &ingest.RawFile{
		Name: "back.csv",
		Data: bytes.ReplaceAll(out, []byte(";"), []byte(",")),
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	a, _ := back.Column("a")
	want, _ := res.Table.Column("a")
	for i := range a.Numbers {
		if a.Numbers[i] != want.Numbers[i] {
			t.Errorf("a[%d] = %v, want %v", i, a.Numbers[i].Float64, want.Numbers[i].Float64)
		}
	}
}
