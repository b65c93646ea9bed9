// Package backend isolates the logistic-regression trainer behind a narrow
// capability interface. The orchestrator never inspects a trained handle
// directly; every lookup of weights happens here.
package backend

import (
	"context"
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// Handle is an opaque trained model owned by a backend.
type Handle = any

// Hyperparameters configure a training run.
type Hyperparameters struct {
	LearningRate  float64 `json:"learningRate" yaml:"learning_rate" mapstructure:"learning_rate"`
	MaxIterations int     `json:"maxIterations" yaml:"max_iterations" mapstructure:"max_iterations"`
	Penalty       string  `json:"penalty" yaml:"penalty" mapstructure:"penalty"`
	// Strength is the regularization strength; the trainer's C is 1/Strength.
	// A non-positive strength disables regularization.
	Strength float64 `json:"strength" yaml:"strength" mapstructure:"strength"`
	Seed     int64   `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// DefaultHyperparameters returns the settings used when none are configured.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		LearningRate:  0.5,
		MaxIterations: 500,
		Penalty:       "l2",
		Strength:      0.01,
		Seed:          42,
	}
}

// Validate checks the hyperparameters before any training starts.
func (hp Hyperparameters) Validate() error {
	if hp.LearningRate <= 0 || math.IsNaN(hp.LearningRate) {
		return errors.NewValidationError("learningRate", "must be positive", hp.LearningRate)
	}
	if hp.MaxIterations <= 0 {
		return errors.NewValidationError("maxIterations", "must be positive", hp.MaxIterations)
	}
	switch hp.Penalty {
	case "none", "l1", "l2":
	default:
		return errors.NewValidationError("penalty", "must be none, l1 or l2", hp.Penalty)
	}
	if hp.Strength < 0 {
		return errors.NewValidationError("strength", "must not be negative", hp.Strength)
	}
	return nil
}

// EffectivePenalty folds a zero strength into "none".
func (hp Hyperparameters) EffectivePenalty() string {
	if hp.Strength <= 0 {
		return "none"
	}
	return hp.Penalty
}

// Params renders the hyperparameters as the export format's parameter map.
func (hp Hyperparameters) Params() map[string]interface{} {
	return map[string]interface{}{
		"learningRate":  hp.LearningRate,
		"maxIterations": hp.MaxIterations,
		"penalty":       hp.Penalty,
		"strength":      hp.Strength,
		"seed":          hp.Seed,
	}
}

// HyperparametersFromParams is the inverse of Params. Numbers may arrive as
// float64 or, from a decoder with UseNumber, as json.Number; the seed is
// read from a json.Number exactly. Missing keys keep their default values.
func HyperparametersFromParams(params map[string]interface{}) (Hyperparameters, error) {
	hp := DefaultHyperparameters()
	num := func(key string) (float64, bool, error) {
		v, ok := params[key]
		if !ok {
			return 0, false, nil
		}
		switch n := v.(type) {
		case float64:
			return n, true, nil
		case int:
			return float64(n), true, nil
		case int64:
			return float64(n), true, nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return 0, false, errors.NewValidationError(key, "must be a number", v)
			}
			return f, true, nil
		default:
			return 0, false, errors.NewValidationError(key, "must be a number", v)
		}
	}

	if f, ok, err := num("learningRate"); err != nil {
		return hp, err
	} else if ok {
		hp.LearningRate = f
	}
	if f, ok, err := num("maxIterations"); err != nil {
		return hp, err
	} else if ok {
		hp.MaxIterations = int(f)
	}
	if f, ok, err := num("strength"); err != nil {
		return hp, err
	} else if ok {
		hp.Strength = f
	}
	if v, ok := params["seed"]; ok {
		seed, err := seedFromParam(v)
		if err != nil {
			return hp, err
		}
		hp.Seed = seed
	}
	if v, ok := params["penalty"]; ok {
		s, isString := v.(string)
		if !isString {
			return hp, errors.NewValidationError("penalty", "must be a string", v)
		}
		hp.Penalty = s
	}
	return hp, hp.Validate()
}

// maxExactSeed is the largest integer a float64 holds exactly.
const maxExactSeed = 1 << 53

func seedFromParam(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		seed, err := n.Int64()
		if err != nil {
			return 0, errors.NewValidationError("seed", "must be an integer", v)
		}
		return seed, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > maxExactSeed {
			return 0, errors.NewValidationError("seed", "must be an integer within ±2^53", v)
		}
		return int64(n), nil
	default:
		return 0, errors.NewValidationError("seed", "must be an integer", v)
	}
}

// Weights are the learned parameters as retrieved from a handle. Coef has one
// row for a binary model and one row per class otherwise.
type Weights struct {
	Coef      [][]float64
	Intercept []float64
	// Source names the accessor the weights were read through.
	Source string
}

// TrainResult is what a successful Train returns.
type TrainResult struct {
	Handle           Handle
	TrainingAccuracy float64
	Iterations       int
}

// ModelBackend is the capability surface the pipeline needs from a trainer.
// Labels are class indices in [0, nClasses).
type ModelBackend interface {
	Name() string
	Train(ctx context.Context, X mat.Matrix, y []int, nClasses int, hp Hyperparameters) (*TrainResult, error)
	Predict(h Handle, X mat.Matrix) ([]int, error)
	PredictProba(h Handle, X mat.Matrix) (*mat.Dense, error)
	// Coefficients reports false when no accessor yields weights.
	Coefficients(h Handle) (*Weights, bool)
	Restore(w *Weights, nClasses int, hp Hyperparameters) (Handle, error)
}

// New returns the backend registered under name.
func New(name string) (ModelBackend, error) {
	switch name {
	case "", LogisticName:
		return NewLogistic(), nil
	default:
		return nil, errors.NewValidationError("backend", "unknown backend", name)
	}
}
