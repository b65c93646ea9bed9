package metrics

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func TestEvaluateBinary(t *testing.T) {
	// TP=3, FN=1, FP=2, TN=4
	yTrue := []int{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	yPred := []int{1, 1, 1, 0, 1, 1, 0, 0, 0, 0}

	r, err := Evaluate(yTrue, yPred, 2)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Averaging != AverageBinary {
		t.Errorf("Averaging = %v, want binary", r.Averaging)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"accuracy", r.Accuracy, 0.7},
		{"precision", r.Precision, 0.6},
		{"recall", r.Recall, 0.75},
		{"f1", r.F1, 2 * 0.6 * 0.75 / 1.35},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	want := [][]int{{4, 2}, {1, 3}}
	for i := range want {
		for j := range want[i] {
			if r.Confusion[i][j] != want[i][j] {
				t.Errorf("Confusion[%d][%d] = %d, want %d", i, j, r.Confusion[i][j], want[i][j])
			}
		}
	}
	if r.PerClass[1].Support != 4 || r.PerClass[0].Support != 6 {
		t.Errorf("unexpected support %+v", r.PerClass)
	}
}

func TestEvaluateMacro(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}

	r, err := Evaluate(yTrue, yPred, 3)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Averaging != AverageMacro {
		t.Errorf("Averaging = %v, want macro", r.Averaging)
	}
	// per class precision: 1/2, 2/3, 1; recall: 1/2, 1, 1/2
	wantP := (0.5 + 2.0/3.0 + 1.0) / 3
	wantR := (0.5 + 1.0 + 0.5) / 3
	if math.Abs(r.Precision-wantP) > 1e-9 {
		t.Errorf("Precision = %v, want %v", r.Precision, wantP)
	}
	if math.Abs(r.Recall-wantR) > 1e-9 {
		t.Errorf("Recall = %v, want %v", r.Recall, wantR)
	}
	if math.Abs(r.Accuracy-4.0/6.0) > 1e-9 {
		t.Errorf("Accuracy = %v", r.Accuracy)
	}
}

func TestEvaluateZeroDenominators(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	// the model never predicts the positive class
	r, err := Evaluate([]int{0, 1, 0, 1}, []int{0, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Precision != 0 || r.Recall != 0 || r.F1 != 0 {
		t.Errorf("expected zero metrics, got P=%v R=%v F1=%v", r.Precision, r.Recall, r.F1)
	}
	if r.Accuracy != 0.5 {
		t.Errorf("Accuracy = %v, want 0.5", r.Accuracy)
	}
	if len(warnings) == 0 {
		t.Error("expected an UndefinedMetricWarning")
	}
}

func TestEvaluateInvalid(t *testing.T) {
	tests := []struct {
		name     string
		yTrue    []int
		yPred    []int
		nClasses int
	}{
		{"empty", nil, nil, 2},
		{"length mismatch", []int{0, 1}, []int{0}, 2},
		{"one class", []int{0, 0}, []int{0, 0}, 1},
		{"label out of range", []int{0, 2}, []int{0, 1}, 2},
		{"unknown label", []int{0, -1}, []int{0, 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Evaluate(tt.yTrue, tt.yPred, tt.nClasses); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReportClone(t *testing.T) {
	r, err := Evaluate([]int{0, 1, 1}, []int{0, 1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	c := r.Clone()
	c.Confusion[0][0] = 99
	c.PerClass[0].Support = 99
	if r.Confusion[0][0] == 99 || r.PerClass[0].Support == 99 {
		t.Error("Clone shares storage with the original")
	}
}
