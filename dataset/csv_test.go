package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func TestReadCSVSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "age,city\n30,Paris\n41,Rome\n"},
		{"semicolon", "age;city\n30;Paris\n41;Rome\n"},
		{"tab", "age\tcity\n30\tParis\n41\tRome\n"},
		{"bom", "\ufeffage,city\n30,Paris\n41,Rome\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ReadCSV(strings.NewReader(tt.input), "in", ReadOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(ds.Columns(), "|"); got != "age|city" {
				t.Errorf("columns = %q", got)
			}
			if ds.NumRows() != 2 {
				t.Errorf("rows = %d", ds.NumRows())
			}
		})
	}
}

func TestReadCSVRaggedRow(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2\n3\n"), "bad.csv", ReadOptions{})
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("line = %d, want 3", pe.Line)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv", ReadOptions{})
	if !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}

func TestReadCSVMaxRows(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a\n1\n2\n3\n"), "in", ReadOptions{MaxRows: 2})
	if err != nil {
		t.Fatal(err)
	}
	if ds.NumRows() != 2 {
		t.Errorf("rows = %d", ds.NumRows())
	}
}

func TestReadFileTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	if err := os.WriteFile(path, []byte("x\ty\n1\t2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := ReadFile(path, ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Name() != "data.tsv" || ds.NumCols() != 2 {
		t.Errorf("unexpected dataset %s with %d columns", ds.Name(), ds.NumCols())
	}
}
