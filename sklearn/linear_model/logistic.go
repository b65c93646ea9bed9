package linear_model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/core/model"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// WeightsVersion is the format version written by ExportWeights.
const WeightsVersion = "1.0"

// LogisticRegression implements binary and one-vs-rest multiclass logistic
// regression trained by full-batch gradient descent.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string  // Regularization: "none", "l1", "l2"
	C            float64 // Inverse regularization strength (1/lambda)
	fitIntercept bool
	learningRate float64 // Initial step size, decayed as lr/(1+0.1*iter)
	maxIter      int
	tol          float64 // Stop when the largest gradient component is below tol
	randomState  int64   // Seed for weight initialisation; negative means random

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []int
	nFeatures_ int
	nIter_     []int

	rand *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		learningRate: 1.0,
		maxIter:      100,
		tol:          1e-4,
		randomState:  -1,
	}

	for _, opt := range opts {
		opt(lr)
	}

	lr.resetRand()
	return lr
}

func (lr *LogisticRegression) resetRand() {
	if lr.randomState >= 0 {
		lr.rand = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rand = rand.New(rand.NewSource(rand.Int63()))
	}
}

// WithLRPenalty sets the regularization type ("none", "l1" or "l2")
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRLearningRate sets the initial gradient descent step size
func WithLRLearningRate(rate float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.learningRate = rate
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

func (lr *LogisticRegression) validateParams() error {
	switch lr.penalty {
	case "none", "l1", "l2":
	default:
		return errors.NewValidationError("penalty", "must be none, l1 or l2", lr.penalty)
	}
	if lr.penalty != "none" && lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", lr.learningRate)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	return nil
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	return lr.FitContext(context.Background(), X, y)
}

// FitContext trains the model, checking ctx between iterations. On any
// error, including cancellation, the model is left unfitted.
func (lr *LogisticRegression) FitContext(ctx context.Context, X, y mat.Matrix) error {
	if err := lr.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	lr.state.Reset()
	lr.resetRand()
	lr.extractClasses(y)
	if len(lr.classes_) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("need at least 2 classes, got %d", len(lr.classes_)))
	}
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	// Binary classification fits a single decision function for the
	// second class; multiclass fits one per class (one-vs-rest).
	targets := lr.classes_
	if len(lr.classes_) == 2 {
		targets = lr.classes_[1:]
	}
	for k, class := range targets {
		yBinary := make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			if int(y.At(i, 0)) == class {
				yBinary[i] = 1.0
			}
		}
		if err := lr.fitDecisionFunction(ctx, X, yBinary, k); err != nil {
			return errors.Wrapf(err, "fit class %d", class)
		}
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// extractClasses identifies unique class labels in ascending order
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	lr.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		lr.classes_ = append(lr.classes_, class)
	}
	sort.Ints(lr.classes_)
}

// initializeWeights initializes model weights with small seeded noise
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nFunctions := len(lr.classes_)
	if nFunctions == 2 {
		nFunctions = 1
	}
	lr.coef_ = make([][]float64, nFunctions)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
		for j := range lr.coef_[i] {
			lr.coef_[i][j] = lr.rand.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, nFunctions)
	lr.nIter_ = make([]int, nFunctions)
}

// fitDecisionFunction runs gradient descent for decision function k
// against 0/1 targets.
func (lr *LogisticRegression) fitDecisionFunction(ctx context.Context, X mat.Matrix, yBinary []float64, k int) error {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[k]
	intercept := &lr.intercept_[k]
	lambda := 0.0
	if lr.penalty != "none" {
		lambda = 1.0 / lr.C
	}

	converged := false
	for iter := 0; iter < lr.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0
		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - yBinary[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}
		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		if lr.penalty == "l2" {
			for j := range weights {
				gradWeights[j] += lambda * weights[j]
			}
		}

		step := lr.learningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= step * gradWeights[j]
		}
		if lr.penalty == "l1" {
			// proximal step (soft thresholding)
			for j := range weights {
				weights[j] = softThreshold(weights[j], step*lambda)
			}
		}
		if lr.fitIntercept {
			*intercept -= step * gradIntercept
		}
		if err := errors.CheckNumericalStability("gradient_update", weights, iter); err != nil {
			return err
		}

		lr.nIter_[k] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}
	return nil
}

func softThreshold(w, t float64) float64 {
	switch {
	case w > t:
		return w - t
	case w < -t:
		return w + t
	default:
		return 0
	}
}

// DecisionFunction returns the raw scores, one column per decision function
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression.DecisionFunction", nFeatures); err != nil {
		return nil, err
	}

	scores := mat.NewDense(nSamples, len(lr.coef_), nil)
	for i := 0; i < nSamples; i++ {
		for k, w := range lr.coef_ {
			z := lr.intercept_[k]
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * w[j]
			}
			scores.Set(i, k, z)
		}
	}
	return scores, nil
}

// Predict returns the predicted class label of each row as a column vector
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, nClasses := probas.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for c := 1; c < nClasses; c++ {
			if probas.At(i, c) > probas.At(i, best) {
				best = c
			}
		}
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class. Binary
// probabilities come from the sigmoid; multiclass scores are normalised
// with softmax.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := scores.Dims()
	nClasses := len(lr.classes_)
	probas := mat.NewDense(nSamples, nClasses, nil)

	for i := 0; i < nSamples; i++ {
		if nClasses == 2 {
			p1 := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1.0-p1)
			probas.Set(i, 1, p1)
			continue
		}
		row := mat.Row(nil, i, scores)
		lse := errors.LogSumExp(row)
		for c, s := range row {
			probas.Set(i, c, math.Exp(s-lse))
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return errors.SafeDivide(float64(correct), float64(nSamples)), nil
}

// Classes returns the class labels seen during fitting in ascending order
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// Coef returns a copy of the coefficient matrix
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for i, row := range lr.coef_ {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Intercept returns a copy of the intercepts
func (lr *LogisticRegression) Intercept() []float64 {
	return append([]float64(nil), lr.intercept_...)
}

// NIter returns the iterations run per decision function
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// IsFitted reports whether the model has been fitted or restored
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"learning_rate": lr.learningRate,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
		"random_state":  lr.randomState,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = toFloat(value)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "learning_rate":
			lr.learningRate, ok = toFloat(value)
		case "max_iter":
			var f float64
			f, ok = toFloat(value)
			lr.maxIter = int(f)
		case "tol":
			lr.tol, ok = toFloat(value)
		case "random_state":
			var f float64
			f, ok = toFloat(value)
			lr.randomState = int64(f)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// toFloat accepts the numeric types produced by Go code and by JSON decoding
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// ExportWeights exports the fitted parameters
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "ExportWeights"); err != nil {
		return nil, err
	}
	return &model.ModelWeights{
		ModelType:       "LogisticRegression",
		Version:         WeightsVersion,
		Coefficients:    lr.Coef(),
		Intercepts:      lr.Intercept(),
		Classes:         lr.Classes(),
		Hyperparameters: lr.GetParams(),
		IsFitted:        true,
	}, nil
}

// ImportWeights restores a fitted model from exported weights
func (lr *LogisticRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LogisticRegression.ImportWeights", "weights are nil")
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if !w.IsFitted {
		return errors.NewValueError("LogisticRegression.ImportWeights", "weights are not fitted")
	}
	if w.ModelType != "LogisticRegression" {
		return errors.NewValueError("LogisticRegression.ImportWeights", "unsupported model type "+w.ModelType)
	}
	if len(w.Hyperparameters) > 0 {
		if err := lr.SetParams(w.Hyperparameters); err != nil {
			return err
		}
	}

	c := w.Clone()
	lr.coef_ = c.Coefficients
	lr.intercept_ = c.Intercepts
	lr.classes_ = c.Classes
	lr.nFeatures_ = c.NFeatures()
	lr.nIter_ = make([]int, len(lr.coef_))
	lr.state.Reset()
	lr.state.SetDimensions(lr.nFeatures_, 0)
	lr.state.SetFitted()
	return nil
}

// sigmoid computes the sigmoid function without overflow
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + errors.StabilizeExp(-z))
	}
	e := errors.StabilizeExp(z)
	return e / (1.0 + e)
}

var (
	_ model.Classifier     = (*LogisticRegression)(nil)
	_ model.WeightExporter = (*LogisticRegression)(nil)
)
