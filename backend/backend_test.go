package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/sklearn/linear_model"
)

func binaryData() (*mat.Dense, []int) {
	X := mat.NewDense(8, 2, []float64{
		0.0, 0.1,
		0.2, 0.0,
		0.1, 0.3,
		0.3, 0.2,
		1.0, 0.9,
		0.9, 1.0,
		0.8, 0.9,
		1.0, 0.8,
	})
	return X, []int{0, 0, 0, 0, 1, 1, 1, 1}
}

func trainBinary(t *testing.T) (*Logistic, *TrainResult, *mat.Dense) {
	t.Helper()
	X, y := binaryData()
	b := NewLogistic()
	hp := DefaultHyperparameters()
	hp.MaxIterations = 1000
	res, err := b.Train(context.Background(), X, y, 2, hp)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return b, res, X
}

func TestLogisticTrainPredict(t *testing.T) {
	b, res, X := trainBinary(t)
	if res.TrainingAccuracy != 1.0 {
		t.Errorf("TrainingAccuracy = %v, want 1", res.TrainingAccuracy)
	}
	if res.Iterations == 0 {
		t.Error("Iterations should be recorded")
	}

	pred, err := b.Predict(res.Handle, X)
	if err != nil {
		t.Fatal(err)
	}
	_, y := binaryData()
	for i := range y {
		if pred[i] != y[i] {
			t.Errorf("row %d: got %d want %d", i, pred[i], y[i])
		}
	}

	proba, err := b.PredictProba(res.Handle, X)
	if err != nil {
		t.Fatal(err)
	}
	if _, c := proba.Dims(); c != 2 {
		t.Errorf("expected 2 probability columns, got %d", c)
	}
}

func TestLogisticTrainDeterministic(t *testing.T) {
	_, a, _ := trainBinary(t)
	_, b, _ := trainBinary(t)
	wa := a.Handle.(*linear_model.LogisticRegression).Coef()
	wb := b.Handle.(*linear_model.LogisticRegression).Coef()
	for j := range wa[0] {
		if wa[0][j] != wb[0][j] {
			t.Fatalf("same seed gave different weights: %v vs %v", wa, wb)
		}
	}
}

func TestLogisticTrainRejectsBadInput(t *testing.T) {
	X, y := binaryData()
	b := NewLogistic()
	hp := DefaultHyperparameters()

	tests := []struct {
		name     string
		X        mat.Matrix
		y        []int
		nClasses int
		hp       Hyperparameters
	}{
		{"label count mismatch", X, y[:3], 2, hp},
		{"single class", X, y, 1, hp},
		{"label out of range", X, append(append([]int{}, y[:7]...), 5), 2, hp},
		{"class missing from partition", X, y, 3, hp},
		{"bad penalty", X, y, 2, Hyperparameters{LearningRate: 0.1, MaxIterations: 10, Penalty: "elastic"}},
		{"bad learning rate", X, y, 2, Hyperparameters{LearningRate: 0, MaxIterations: 10, Penalty: "l2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Train(context.Background(), tt.X, tt.y, tt.nClasses, tt.hp); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLogisticTrainCancelled(t *testing.T) {
	X, y := binaryData()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLogistic().Train(ctx, X, y, 2, DefaultHyperparameters())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHyperparametersParamsRoundTrip(t *testing.T) {
	hp := Hyperparameters{LearningRate: 0.3, MaxIterations: 250, Penalty: "l1", Strength: 0.5, Seed: 7}
	params := hp.Params()
	// simulate JSON decoding
	decoded := map[string]interface{}{}
	for k, v := range params {
		switch n := v.(type) {
		case int:
			decoded[k] = float64(n)
		case int64:
			decoded[k] = float64(n)
		default:
			decoded[k] = v
		}
	}
	got, err := HyperparametersFromParams(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if got != hp {
		t.Errorf("round trip = %+v, want %+v", got, hp)
	}

	if _, err := HyperparametersFromParams(map[string]interface{}{"penalty": 3}); err == nil {
		t.Error("expected error for non-string penalty")
	}
	if _, err := HyperparametersFromParams(map[string]interface{}{"seed": "x"}); err == nil {
		t.Error("expected error for non-numeric seed")
	}
}

func TestHyperparametersLargeSeed(t *testing.T) {
	hp := DefaultHyperparameters()
	hp.Seed = 1<<62 + 1

	data, err := json.Marshal(hp.Params())
	if err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var params map[string]interface{}
	if err := dec.Decode(&params); err != nil {
		t.Fatal(err)
	}
	got, err := HyperparametersFromParams(params)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seed != hp.Seed {
		t.Errorf("seed = %d, want %d", got.Seed, hp.Seed)
	}

	// a float64 this large has already lost precision
	if _, err := HyperparametersFromParams(map[string]interface{}{"seed": float64(1 << 60)}); err == nil {
		t.Error("expected error for a float seed beyond 2^53")
	}
	if _, err := HyperparametersFromParams(map[string]interface{}{"seed": 1.5}); err == nil {
		t.Error("expected error for a fractional seed")
	}
}

func TestEffectivePenalty(t *testing.T) {
	hp := DefaultHyperparameters()
	if hp.EffectivePenalty() != "l2" {
		t.Errorf("got %s", hp.EffectivePenalty())
	}
	hp.Strength = 0
	if hp.EffectivePenalty() != "none" {
		t.Errorf("zero strength should disable the penalty, got %s", hp.EffectivePenalty())
	}
}

func TestRestore(t *testing.T) {
	b, res, X := trainBinary(t)
	w, ok := b.Coefficients(res.Handle)
	if !ok {
		t.Fatal("coefficients should be available")
	}

	h, err := b.Restore(w, 2, DefaultHyperparameters())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	p1, _ := b.PredictProba(res.Handle, X)
	p2, err := b.PredictProba(h, X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(p1, p2, 1e-12) {
		t.Error("restored handle predicts differently")
	}

	if _, err := b.Restore(&Weights{Coef: [][]float64{{1}}, Intercept: []float64{0, 0}}, 2, DefaultHyperparameters()); err == nil {
		t.Error("expected error for inconsistent weights")
	}
}

func TestNewBackend(t *testing.T) {
	if b, err := New("logistic"); err != nil || b.Name() != LogisticName {
		t.Errorf("New(logistic) = %v, %v", b, err)
	}
	if _, err := New("svm"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

// Handles exposing weights through each rung of the accessor ladder.

type accessorHandle struct{ inner *linear_model.LogisticRegression }

func (h accessorHandle) Predict(X mat.Matrix) (mat.Matrix, error) { return h.inner.Predict(X) }
func (h accessorHandle) Weights() *Weights {
	return &Weights{Coef: h.inner.Coef(), Intercept: h.inner.Intercept()}
}

type nestedHandle struct{ inner any }

func (h nestedHandle) Unwrap() Handle { return h.inner }
func (h nestedHandle) Predict(X mat.Matrix) (mat.Matrix, error) {
	return h.inner.(interface {
		Predict(mat.Matrix) (mat.Matrix, error)
	}).Predict(X)
}

type panickingHandle struct{ inner *linear_model.LogisticRegression }

func (h panickingHandle) Coef() [][]float64                         { panic("boom") }
func (h panickingHandle) Predict(X mat.Matrix) (mat.Matrix, error) { return h.inner.Predict(X) }

type opaqueHandle struct{ inner *linear_model.LogisticRegression }

func (h opaqueHandle) Predict(X mat.Matrix) (mat.Matrix, error) { return h.inner.Predict(X) }

type brokenHandle struct{}

func (brokenHandle) Predict(X mat.Matrix) (mat.Matrix, error) {
	return nil, errors.New("model file corrupt")
}

func TestExtractCoefficientsLadder(t *testing.T) {
	b, res, _ := trainBinary(t)
	lr := res.Handle.(*linear_model.LogisticRegression)
	want := lr.Coef()[0]
	features := []string{"x1", "x2"}
	classes := []string{"no", "yes"}

	tests := []struct {
		name       string
		handle     Handle
		wantSource string
	}{
		{"direct coef", lr, "coef"},
		{"accessor method", accessorHandle{lr}, "weights"},
		{"nested model", nestedHandle{accessorHandle{lr}}, "unwrap/weights"},
		{"panicking coef is skipped", nestedHandle{panickingHandle{lr}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ExtractCoefficients(b, tt.handle, features, classes)
			if err != nil {
				t.Fatalf("ExtractCoefficients() error = %v", err)
			}
			if tt.wantSource == "" {
				// the panicking rung is skipped and nothing else exposes weights
				if ext.Available {
					t.Errorf("expected unavailable coefficients, got source %s", ext.Source)
				}
				return
			}
			if !ext.Available || ext.Source != tt.wantSource {
				t.Fatalf("Available=%v Source=%q, want source %q", ext.Available, ext.Source, tt.wantSource)
			}
			if len(ext.Coefficients) != 2 {
				t.Fatalf("expected 2 coefficients, got %d", len(ext.Coefficients))
			}
			for j, c := range ext.Coefficients {
				if c.Feature != features[j] || c.Class != "yes" || c.Value != want[j] {
					t.Errorf("coefficient %d = %+v", j, c)
				}
			}
		})
	}
}

func TestExtractCoefficientsFallback(t *testing.T) {
	b, res, _ := trainBinary(t)
	lr := res.Handle.(*linear_model.LogisticRegression)

	ext, err := ExtractCoefficients(b, opaqueHandle{lr}, []string{"x1", "x2"}, []string{"0", "1"})
	if err != nil {
		t.Fatalf("ExtractCoefficients() error = %v", err)
	}
	if ext.Available {
		t.Error("opaque handle must not report available coefficients")
	}
	for _, c := range ext.Coefficients {
		if c.Value != 0 || c.Available || c.Note != UnavailableNote {
			t.Errorf("placeholder not annotated: %+v", c)
		}
	}

	_, err = ExtractCoefficients(b, brokenHandle{}, []string{"x1", "x2"}, []string{"0", "1"})
	var mie *errors.ModelInferenceError
	if !errors.As(err, &mie) {
		t.Errorf("expected ModelInferenceError, got %v", err)
	}
}

func TestExtractCoefficientsMulticlass(t *testing.T) {
	X := mat.NewDense(9, 1, []float64{0, 0.1, 0.2, 1, 1.1, 1.2, 2, 2.1, 2.2})
	y := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}
	b := NewLogistic()
	res, err := b.Train(context.Background(), X, y, 3, DefaultHyperparameters())
	if err != nil {
		t.Fatal(err)
	}
	ext, err := ExtractCoefficients(b, res.Handle, []string{"x"}, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Coefficients) != 3 || len(ext.Intercepts) != 3 {
		t.Fatalf("expected one coefficient per class, got %d", len(ext.Coefficients))
	}
	for i, class := range []string{"a", "b", "c"} {
		if ext.Coefficients[i].Class != class {
			t.Errorf("row %d class = %s, want %s", i, ext.Coefficients[i].Class, class)
		}
	}
	if m := ext.Matrix(1); len(m) != 3 || len(m[0]) != 1 {
		t.Errorf("Matrix shape wrong: %v", m)
	}
}
