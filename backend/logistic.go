package backend

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/core/model"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/sklearn/linear_model"
)

// LogisticName identifies the gradient-descent logistic regression backend.
const LogisticName = "logistic"

// Logistic adapts linear_model.LogisticRegression to ModelBackend.
type Logistic struct {
	logger log.Logger
}

// NewLogistic creates the logistic regression backend.
func NewLogistic() *Logistic {
	return &Logistic{logger: log.GetLoggerWithName("backend.logistic")}
}

// Name implements ModelBackend.
func (b *Logistic) Name() string { return LogisticName }

func trainerOptions(hp Hyperparameters) []linear_model.LogisticRegressionOption {
	c := 1.0
	if hp.Strength > 0 {
		c = 1 / hp.Strength
	}
	return []linear_model.LogisticRegressionOption{
		linear_model.WithLRPenalty(hp.EffectivePenalty()),
		linear_model.WithLRC(c),
		linear_model.WithLRLearningRate(hp.LearningRate),
		linear_model.WithLRMaxIter(hp.MaxIterations),
		linear_model.WithLRTol(1e-6),
		linear_model.WithLRRandomState(hp.Seed),
	}
}

// Train fits a model on X and class indices y. The returned handle has
// already passed a predict check on the training matrix.
func (b *Logistic) Train(ctx context.Context, X mat.Matrix, y []int, nClasses int, hp Hyperparameters) (*TrainResult, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples != len(y) {
		return nil, errors.NewDimensionError("Logistic.Train", nSamples, len(y), 0)
	}
	if nClasses < 2 {
		return nil, errors.NewValueError("Logistic.Train", fmt.Sprintf("need at least 2 classes, got %d", nClasses))
	}

	seen := make([]bool, nClasses)
	labels := make([]float64, nSamples)
	for i, label := range y {
		if label < 0 || label >= nClasses {
			return nil, errors.NewValueError("Logistic.Train", fmt.Sprintf("label %d out of range at row %d", label, i))
		}
		seen[label] = true
		labels[i] = float64(label)
	}
	for class, ok := range seen {
		if !ok {
			return nil, errors.NewValueError("Logistic.Train",
				fmt.Sprintf("class index %d has no rows in the training partition", class))
		}
	}

	start := time.Now()
	lr := linear_model.NewLogisticRegression(trainerOptions(hp)...)
	if err := lr.FitContext(ctx, X, mat.NewDense(nSamples, 1, labels)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "train logistic regression")
	}

	if _, err := b.Predict(lr, X); err != nil {
		return nil, errors.NewModelInferenceError("train", err)
	}
	proba, err := b.PredictProba(lr, X)
	if err != nil {
		return nil, errors.NewModelInferenceError("train", err)
	}

	iterations := 0
	for _, n := range lr.NIter() {
		if n > iterations {
			iterations = n
		}
	}
	result := &TrainResult{
		Handle:           lr,
		TrainingAccuracy: roundedAccuracy(proba, y),
		Iterations:       iterations,
	}

	b.logger.Info("model trained",
		log.ModelNameKey, LogisticName,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, nClasses,
		log.PenaltyKey, hp.EffectivePenalty(),
		log.IterationKey, iterations,
		log.AccuracyKey, result.TrainingAccuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// roundedAccuracy compares rounded probabilities against labels. A binary
// row predicts the positive class when its probability rounds to 1; a
// multiclass row predicts its most probable class.
func roundedAccuracy(proba *mat.Dense, y []int) float64 {
	rows, cols := proba.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		var pred int
		if cols == 2 {
			pred = int(math.Round(proba.At(i, 1)))
		} else {
			pred = argmax(mat.Row(nil, i, proba))
		}
		if pred == y[i] {
			correct++
		}
	}
	return errors.SafeDivide(float64(correct), float64(rows))
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

// Predict returns class indices. Any handle that implements model.Predictor
// is accepted; a failure or panic becomes a ModelInferenceError.
func (b *Logistic) Predict(h Handle, X mat.Matrix) ([]int, error) {
	p, ok := h.(model.Predictor)
	if !ok {
		return nil, errors.NewModelInferenceError("predict", errors.Newf("handle %T cannot predict", h))
	}
	out, err := errors.SafeCall("predict", func() (mat.Matrix, error) {
		return p.Predict(X)
	})
	if err != nil {
		return nil, errors.NewModelInferenceError("predict", err)
	}

	rows, _ := X.Dims()
	if out == nil {
		return nil, errors.NewModelInferenceError("predict", errors.New("no predictions returned"))
	}
	if r, _ := out.Dims(); r != rows {
		return nil, errors.NewModelInferenceError("predict", errors.Newf("got %d predictions for %d rows", r, rows))
	}
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = int(math.Round(out.At(i, 0)))
	}
	return labels, nil
}

type probabilistic interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// PredictProba returns one probability column per class.
func (b *Logistic) PredictProba(h Handle, X mat.Matrix) (*mat.Dense, error) {
	p, ok := h.(probabilistic)
	if !ok {
		return nil, errors.NewModelInferenceError("predict_proba", errors.Newf("handle %T has no probabilities", h))
	}
	out, err := errors.SafeCall("predict_proba", func() (mat.Matrix, error) {
		return p.PredictProba(X)
	})
	if err != nil {
		return nil, errors.NewModelInferenceError("predict_proba", err)
	}
	return mat.DenseCopyOf(out), nil
}

// Restore rebuilds a fitted handle from exported weights.
func (b *Logistic) Restore(w *Weights, nClasses int, hp Hyperparameters) (Handle, error) {
	if w == nil {
		return nil, errors.NewValueError("Logistic.Restore", "weights are nil")
	}
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	classes := make([]int, nClasses)
	for i := range classes {
		classes[i] = i
	}
	lr := linear_model.NewLogisticRegression(trainerOptions(hp)...)
	err := lr.ImportWeights(&model.ModelWeights{
		ModelType:    "LogisticRegression",
		Version:      linear_model.WeightsVersion,
		Coefficients: w.Coef,
		Intercepts:   w.Intercept,
		Classes:      classes,
		IsFitted:     true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "restore logistic regression")
	}
	return lr, nil
}

var _ ModelBackend = (*Logistic)(nil)
