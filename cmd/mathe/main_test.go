package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/Fillereine/MathE/internal/core"
)

func writeInput(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCleanCommand(t *testing.T) {
	in := writeInput(t, "data.csv", "a,b,c\n1,x,\n3,y,\n")
	dir := t.TempDir()
	cleaned := filepath.Join(dir, "cleaned.csv")
	original := filepath.Join(dir, "original.csv")

	stdout, err := run(t, "clean", in, "--out", cleaned, "--original", original)
	if err != nil {
		t.Fatalf("clean error = %v", err)
	}
	if !strings.Contains(stdout, "dropped: c") {
		t.Errorf("summary %q does not mention dropped column", stdout)
	}

	got, err := os.ReadFile(cleaned)
	if err != nil {
		t.Fatal(err)
	}
	if want := "a;b\n-1.0;-1.0\n1.0;1.0\n"; string(got) != want {
		t.Errorf("cleaned = %q, want %q", got, want)
	}

	got, err = os.ReadFile(original)
	if err != nil {
		t.Fatal(err)
	}
	if want := "a;b;c\n1;x;\n3;y;\n"; string(got) != want {
		t.Errorf("original = %q, want %q", got, want)
	}
}

func TestCleanCommandStdout(t *testing.T) {
	in := writeInput(t, "data.csv", "a,b\n1,5\n3,5\n")

	stdout, err := run(t, "clean", in, "--out", "-", "--sep", "comma")
	if err != nil {
		t.Fatalf("clean error = %v", err)
	}
	if want := "a,b\n-1.0,0.0\n1.0,0.0\n"; stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestCleanCommandJSONSummary(t *testing.T) {
	in := writeInput(t, "data.json", `[{"a": 1, "b": null}, {"a": 2, "b": null}]`)

	stdout, err := run(t, "clean", in, "--out", filepath.Join(t.TempDir(), "o.csv"), "--json")
	if err != nil {
		t.Fatalf("clean error = %v", err)
	}
	var s core.Summary
	if err := gojson.Unmarshal([]byte(stdout), &s); err != nil {
		t.Fatalf("decode summary %q: %v", stdout, err)
	}
	if len(s.Dropped) != 1 || s.Dropped[0] != "b" {
		t.Errorf("Dropped = %v, want [b]", s.Dropped)
	}
}

func TestCleanCommandErrors(t *testing.T) {
	txt := writeInput(t, "notes.txt", "hello")
	csv := writeInput(t, "data.csv", "a\n1\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing argument", []string{"clean"}},
		{"unsupported format", []string{"clean", txt}},
		{"missing file", []string{"clean", filepath.Join(t.TempDir(), "nope.csv")}},
		{"bad separator", []string{"clean", csv, "--sep", ";;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestInspectCommand(t *testing.T) {
	in := writeInput(t, "data.csv", "name,score\nann,1\nbob,\ncy,3\n")

	stdout, err := run(t, "inspect", in, "--rows", "2")
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	for _, want := range []string{"ann", "bob", "3 rows x 2 columns", "score"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "cy ") {
		t.Errorf("preview shows more than 2 rows:\n%s", stdout)
	}

	stdout, err = run(t, "inspect", in, "--json")
	if err != nil {
		t.Fatalf("inspect --json error = %v", err)
	}
	var p core.Profile
	if err := gojson.Unmarshal([]byte(stdout), &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.Missing["score"] != 1 {
		t.Errorf("Missing = %v, want score:1", p.Missing)
	}
}
