package dataset

import (
	"testing"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		name       string
		values     []string
		wantType   ColumnType
		wantUnique int
		wantMiss   int
		predictor  bool
		target     bool
	}{
		{"numeric", []string{"1", "2", "3", ""}, Numeric, 3, 1, true, true},
		{"mostly numeric", []string{"1", "2", "3", "x", "5", "6", "7", "8", "9", "10"}, Numeric, 10, 0, true, false},
		{"below threshold", []string{"1", "2", "a", "b"}, Categorical, 4, 0, true, true},
		{"constant", []string{"yes", "yes", "yes"}, Categorical, 1, 0, false, true},
		{"all missing", []string{"", " "}, Categorical, 0, 2, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Classify("col", tt.values)
			if p.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", p.Type, tt.wantType)
			}
			if p.UniqueCount != tt.wantUnique || p.MissingCount != tt.wantMiss {
				t.Errorf("unique=%d missing=%d", p.UniqueCount, p.MissingCount)
			}
			if p.SuitablePredictor() != tt.predictor || p.SuitableTarget() != tt.target {
				t.Errorf("predictor=%v target=%v", p.SuitablePredictor(), p.SuitableTarget())
			}
		})
	}
}

func TestClassifyUsesSample(t *testing.T) {
	values := []string{"1", "2", "3", "a", "b", "c", "d", "e"}
	c := Classifier{SampleSize: 3, NumericThreshold: 0.7, MaxTargetClasses: 5}
	if p := c.Classify("x", values); p.Type != Numeric {
		t.Errorf("sample of first 3 rows should be numeric, got %s", p.Type)
	}
	c.SampleSize = 0
	if p := c.Classify("x", values); p.Type != Categorical {
		t.Errorf("full column should be categorical, got %s", p.Type)
	}
}

func TestSelectionValidate(t *testing.T) {
	ds, _ := New("t", []string{"age", "id", "const", "label"}, [][]string{
		{"30", "1", "k", "yes"},
		{"40", "2", "k", "no"},
		{"50", "3", "k", "yes"},
		{"60", "4", "k", "no"},
		{"70", "5", "k", "no"},
		{"80", "6", "k", "yes"},
	})
	profiles := DefaultClassifier().Profile(ds)

	tests := []struct {
		name    string
		sel     Selection
		wantErr bool
	}{
		{"valid", Selection{Predictors: []string{"age"}, Target: "label"}, false},
		{"partial", Selection{Predictors: []string{"age"}}, false},
		{"unknown", Selection{Predictors: []string{"height"}, Target: "label"}, true},
		{"duplicate", Selection{Predictors: []string{"age", "age"}, Target: "label"}, true},
		{"target as predictor", Selection{Predictors: []string{"label"}, Target: "label"}, true},
		{"constant predictor", Selection{Predictors: []string{"const"}, Target: "label"}, true},
		{"high cardinality target", Selection{Predictors: []string{"age"}, Target: "id"}, true},
		{"single class target", Selection{Predictors: []string{"age"}, Target: "const"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate(profiles)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	err := Selection{Predictors: []string{"age"}, Target: "id"}.Validate(profiles)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) || ve.ParamName != "target" {
		t.Errorf("expected target ValidationError, got %v", err)
	}
}

func TestSelectionHelpers(t *testing.T) {
	s := Selection{Predictors: []string{"a", "b"}, Target: "y"}
	if !s.Complete() || (Selection{Target: "y"}).Complete() {
		t.Error("Complete mismatch")
	}
	c := s.Clone()
	c.Predictors[0] = "z"
	if s.Predictors[0] != "a" {
		t.Error("Clone is shallow")
	}
	if got := s.Columns(); len(got) != 3 || got[2] != "y" {
		t.Errorf("Columns = %v", got)
	}
}
