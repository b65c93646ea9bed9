package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}

	// 母標準偏差 sqrt(1.25)
	if math.Abs(s.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("scale = %v", s.Scale[0])
	}
	// 定数列はスケール1
	if s.Scale[1] != 1 {
		t.Errorf("constant column scale = %v, want 1", s.Scale[1])
	}
	sum := 0.0
	for i := 0; i < 4; i++ {
		sum += out.At(i, 0)
		if out.At(i, 1) != 0 {
			t.Errorf("constant column not centred: %v", out.At(i, 1))
		}
	}
	if math.Abs(sum) > 1e-12 {
		t.Errorf("standardised column mean = %v", sum/4)
	}
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{100, 200, 300})
	m := NewMinMaxScaler()
	out, err := m.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, 1}
	for i, w := range want {
		if math.Abs(out.At(i, 0)-w) > 1e-12 {
			t.Errorf("row %d = %v, want %v", i, out.At(i, 0), w)
		}
	}

	// 学習範囲外はクリップしない
	outside, _ := m.Transform(mat.NewDense(1, 1, []float64{400}))
	if math.Abs(outside.At(0, 0)-1.5) > 1e-12 {
		t.Errorf("out of range value = %v", outside.At(0, 0))
	}
}

func TestScalerErrors(t *testing.T) {
	s := NewStandardScaler()
	var nf *errors.NotFittedError
	if _, err := s.Transform(mat.NewDense(1, 1, nil)); !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	m, err := RestoreMinMaxScaler([]float64{0, 0}, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	var de *errors.DimensionError
	if _, err := m.Transform(mat.NewDense(1, 3, nil)); !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	if _, err := RestoreStandardScaler([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestRestoreMatchesFit(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 500, 2, 800, 6, 100})
	fitted := NewStandardScaler()
	want, _ := fitted.FitTransform(X)

	restored, err := RestoreStandardScaler(fitted.Mean, fitted.Scale)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := restored.Transform(X)
	if !mat.EqualApprox(want, got, 1e-12) {
		t.Error("restored scaler differs from fitted scaler")
	}
}
