package linear_model

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func separableData() (*mat.Dense, *mat.Dense) {
	// Class 0 around (1, 1), class 1 around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	X, y := separableData()

	lr := NewLogisticRegression(
		WithLRMaxIter(1000),
		WithLRTol(1e-4),
		WithLRRandomState(42),
	)
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 6; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.At(i, 0), predictions.At(i, 0))
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0,
		3.0, 3.0,
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 0 {
		t.Errorf("Test point (1,1) should be class 0, got %v", testPreds.At(0, 0))
	}
	if testPreds.At(1, 0) != 1 {
		t.Errorf("Test point (3,3) should be class 1, got %v", testPreds.At(1, 0))
	}

	if got := len(lr.Coef()); got != 1 {
		t.Errorf("binary model should have one coefficient row, got %d", got)
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500), WithLRRandomState(1))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}

	predictions, _ := lr.Predict(X)
	for i := 0; i < rows; i++ {
		sum := probas.At(i, 0) + probas.At(i, 1)
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
		pred := int(predictions.At(i, 0))
		if pred == 1 && probas.At(i, 1) <= probas.At(i, 0) {
			t.Errorf("Sample %d: predicted class 1 but P(1)=%v", i, probas.At(i, 1))
		}
		if pred == 0 && probas.At(i, 0) < probas.At(i, 1) {
			t.Errorf("Sample %d: predicted class 0 but P(0)=%v", i, probas.At(i, 0))
		}
	}
}

// TestLogisticRegression_Score tests accuracy calculation
func TestLogisticRegression_Score(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		3, 3,
		3, 4,
		4, 3,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRC(10.0), WithLRRandomState(7))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if score != 1.0 {
		t.Errorf("Expected perfect score for linearly separable data, got %v", score)
	}
}

// TestLogisticRegression_Regularization tests that a smaller C shrinks weights
func TestLogisticRegression_Regularization(t *testing.T) {
	X := mat.NewDense(10, 5, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
		0, 0, 0, 0, 1,
		1, 1, 0, 0, 0,
		0, 1, 1, 0, 0,
		0, 0, 1, 1, 0,
		0, 0, 0, 1, 1,
		1, 0, 0, 0, 1,
	})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 1, 1, 0, 0, 1, 1, 1})

	norm := func(lr *LogisticRegression) float64 {
		s := 0.0
		for _, w := range lr.Coef()[0] {
			s += w * w
		}
		return math.Sqrt(s)
	}

	lrStrong := NewLogisticRegression(WithLRC(0.01), WithLRMaxIter(1000), WithLRRandomState(3))
	lrWeak := NewLogisticRegression(WithLRC(100.0), WithLRMaxIter(1000), WithLRRandomState(3))
	if err := lrStrong.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := lrWeak.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	if norm(lrStrong) >= norm(lrWeak) {
		t.Errorf("Strong regularization should produce smaller weights: strong=%v, weak=%v",
			norm(lrStrong), norm(lrWeak))
	}
}

// TestLogisticRegression_L1Sparsity tests that a strong L1 penalty zeroes weights
func TestLogisticRegression_L1Sparsity(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(
		WithLRPenalty("l1"),
		WithLRC(0.01),
		WithLRMaxIter(200),
		WithLRRandomState(5),
	)
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for j, w := range lr.Coef()[0] {
		if w != 0 {
			t.Errorf("coefficient %d should be exactly zero under strong L1, got %v", j, w)
		}
	}
}

// TestLogisticRegression_Multiclass tests one-vs-rest classification
func TestLogisticRegression_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
		4, 4,
		4, 5,
		5, 4,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRC(10.0), WithLRRandomState(11))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit multiclass model: %v", err)
	}

	if got := lr.Classes(); len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("Expected classes [0 1 2], got %v", got)
	}
	if got := len(lr.Coef()); got != 3 {
		t.Errorf("Expected 3 coefficient rows, got %d", got)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if cols != 3 {
		t.Fatalf("Expected 3 probability columns, got %d", cols)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			prob := probas.At(i, j)
			if prob < 0 || prob > 1 {
				t.Errorf("Invalid probability at (%d, %d): %v", i, j, prob)
			}
			sum += prob
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
	}

	// the extreme clusters must be recovered
	predictions, _ := lr.Predict(X)
	if predictions.At(0, 0) != 0 || predictions.At(8, 0) != 2 {
		t.Errorf("extreme samples misclassified: %v, %v", predictions.At(0, 0), predictions.At(8, 0))
	}
}

// TestLogisticRegression_GetSetParams tests parameter management
func TestLogisticRegression_GetSetParams(t *testing.T) {
	lr := NewLogisticRegression()

	params := lr.GetParams()
	if params["C"].(float64) != 1.0 {
		t.Errorf("Default C should be 1.0, got %v", params["C"])
	}
	if params["max_iter"].(int) != 100 {
		t.Errorf("Default max_iter should be 100, got %v", params["max_iter"])
	}

	err := lr.SetParams(map[string]interface{}{
		"C":        2.0,
		"max_iter": 200,
		"penalty":  "l1",
		"tol":      1e-5,
	})
	if err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if lr.C != 2.0 || lr.maxIter != 200 || lr.penalty != "l1" || lr.tol != 1e-5 {
		t.Errorf("params not updated: %v", lr.GetParams())
	}

	if err := lr.SetParams(map[string]interface{}{"solver": "lbfgs"}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if err := lr.SetParams(map[string]interface{}{"C": "big"}); err == nil {
		t.Error("expected error for wrongly typed parameter")
	}
}

// TestLogisticRegression_InvalidParams tests hyperparameter validation
func TestLogisticRegression_InvalidParams(t *testing.T) {
	X, y := separableData()
	cases := []*LogisticRegression{
		NewLogisticRegression(WithLRPenalty("elasticnet")),
		NewLogisticRegression(WithLRC(0)),
		NewLogisticRegression(WithLRLearningRate(-1)),
		NewLogisticRegression(WithLRMaxIter(0)),
	}
	for i, lr := range cases {
		err := lr.Fit(X, y)
		var verr *errors.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("case %d: expected ValidationError, got %v", i, err)
		}
	}

	// C is irrelevant without a penalty
	if err := NewLogisticRegression(WithLRPenalty("none"), WithLRC(0)).Fit(X, y); err != nil {
		t.Errorf("penalty none should ignore C: %v", err)
	}
}

// TestLogisticRegression_SingleClass tests that one class is rejected
func TestLogisticRegression_SingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})
	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err == nil {
		t.Fatal("expected error for a single class")
	}
	if lr.IsFitted() {
		t.Error("model should stay unfitted")
	}
}

// TestLogisticRegression_ContextCancel tests that cancellation aborts fitting
func TestLogisticRegression_ContextCancel(t *testing.T) {
	X, y := separableData()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lr := NewLogisticRegression()
	err := lr.FitContext(ctx, X, y)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if lr.IsFitted() {
		t.Error("cancelled fit must leave the model unfitted")
	}
}

// TestLogisticRegression_ConvergenceWarning tests the warning on max_iter
func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X, y := separableData()
	lr := NewLogisticRegression(WithLRMaxIter(2), WithLRTol(1e-12))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, w := range warnings {
		var cw *errors.ConvergenceWarning
		if errors.As(w, &cw) {
			found = true
		}
	}
	if !found {
		t.Error("expected a ConvergenceWarning")
	}
}

// TestLogisticRegression_WeightsRoundTrip tests export and import of weights
func TestLogisticRegression_WeightsRoundTrip(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRMaxIter(300), WithLRRandomState(42))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	w, err := lr.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}
	data, err := w.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	restored := NewLogisticRegression()
	decoded := w.Clone()
	decoded.Hyperparameters = nil
	if err := decoded.FromJSON(data); err != nil {
		t.Fatal(err)
	}
	if err := restored.ImportWeights(decoded); err != nil {
		t.Fatalf("ImportWeights: %v", err)
	}

	p1, _ := lr.PredictProba(X)
	p2, err := restored.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(p1, p2, 1e-12) {
		t.Error("restored model gives different probabilities")
	}
	if restored.maxIter != 300 {
		t.Errorf("hyperparameters not restored: max_iter=%d", restored.maxIter)
	}
}

// TestLogisticRegression_NotFitted tests error when predicting without fitting
func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := lr.Predict(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError, got %v", err)
	}
	if _, err := lr.PredictProba(X); err == nil {
		t.Error("Expected error when predicting probabilities without fitting")
	}
	if _, err := lr.ExportWeights(); err == nil {
		t.Error("Expected error when exporting without fitting")
	}
}

// TestLogisticRegression_DimensionMismatch tests the feature count check
func TestLogisticRegression_DimensionMismatch(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(1))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	_, err := lr.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("Expected DimensionError, got %v", err)
	}
}
