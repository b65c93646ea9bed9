package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func TestNewCopiesInput(t *testing.T) {
	cols := []string{"a", "b"}
	rows := [][]string{{"1", "x"}, {"2", "y"}}
	ds, err := New("t", cols, rows)
	if err != nil {
		t.Fatal(err)
	}
	rows[0][0] = "changed"
	cols[0] = "z"

	got, _ := ds.Column("a")
	if got[0] != "1" {
		t.Errorf("dataset shares row storage with caller")
	}
	if !ds.HasColumn("a") || ds.HasColumn("z") {
		t.Errorf("dataset shares header storage with caller")
	}
}

func TestNewRejectsBadShape(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		rows [][]string
	}{
		{"no columns", nil, nil},
		{"empty name", []string{"a", " "}, nil},
		{"duplicate", []string{"a", "a"}, nil},
		{"ragged", []string{"a", "b"}, [][]string{{"1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("t", tt.cols, tt.rows); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestColumnAtAndMissingColumns(t *testing.T) {
	ds, _ := New("t", []string{"a", "b"}, [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}})

	got, err := ds.ColumnAt("b", []int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "z,x" {
		t.Errorf("ColumnAt = %v", got)
	}

	_, err = ds.Column("nope")
	var mc *errors.MissingColumnsError
	if !errors.As(err, &mc) {
		t.Errorf("expected MissingColumnsError, got %v", err)
	}

	if m := ds.MissingColumns([]string{"a", "c", "d"}); strings.Join(m, ",") != "c,d" {
		t.Errorf("MissingColumns = %v", m)
	}
}

func TestParseNumbers(t *testing.T) {
	got := ParseNumbers([]string{"1.5", " 2 ", "", "abc", "NaN", "-3e2"})
	want := []float64{1.5, 2, math.NaN(), math.NaN(), math.NaN(), -300}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("index %d: want NaN, got %v", i, got[i])
			}
			continue
		}
		if got[i] != want[i] {
			t.Errorf("index %d: want %v, got %v", i, want[i], got[i])
		}
	}
}
