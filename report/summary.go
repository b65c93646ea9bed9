package report

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pipeline"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// Format is the encoding of a written summary.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml in any case.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(v) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.NewValidationError("format", "must be json or yaml", v)
}

// SplitSummary describes a split without its row indices.
type SplitSummary struct {
	Train      int     `json:"train" yaml:"train"`
	Test       int     `json:"test" yaml:"test"`
	Ratio      float64 `json:"ratio" yaml:"ratio"`
	Stratified bool    `json:"stratified" yaml:"stratified"`
	Seed       int64   `json:"seed" yaml:"seed"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// ModelSummary describes the trained model without its handle.
type ModelSummary struct {
	Backend               string                  `json:"backend" yaml:"backend"`
	Hyperparameters       backend.Hyperparameters `json:"hyperparameters" yaml:"hyperparameters"`
	Features              []string                `json:"features" yaml:"features"`
	Classes               []string                `json:"classes" yaml:"classes"`
	TrainingAccuracy      float64                 `json:"trainingAccuracy" yaml:"trainingAccuracy"`
	TrainingSamples       int                     `json:"trainingSamples" yaml:"trainingSamples"`
	CoefficientsAvailable bool                    `json:"coefficientsAvailable" yaml:"coefficientsAvailable"`
	Coefficients          []backend.Coefficient   `json:"coefficients" yaml:"coefficients"`
}

// EvaluationSummary reports the held-out scores.
type EvaluationSummary struct {
	Accuracy  float64  `json:"accuracy" yaml:"accuracy"`
	Precision float64  `json:"precision" yaml:"precision"`
	Recall    float64  `json:"recall" yaml:"recall"`
	F1        float64  `json:"f1Score" yaml:"f1Score"`
	AUC       float64  `json:"auc" yaml:"auc"`
	LogLoss   float64  `json:"logLoss" yaml:"logLoss"`
	Averaging string   `json:"averaging" yaml:"averaging"`
	Labels    []string `json:"labels" yaml:"labels"`
	Confusion [][]int  `json:"confusionMatrix" yaml:"confusionMatrix"`
	Samples   int      `json:"samples" yaml:"samples"`
	Skipped   int      `json:"skipped" yaml:"skipped"`
}

// Summary is the compact, serialisable view of a snapshot. Sections whose
// entity is absent are nil.
type Summary struct {
	Stage            string                 `json:"stage" yaml:"stage"`
	Dataset          *pipeline.DatasetInfo  `json:"dataset" yaml:"dataset"`
	Selection        dataset.Selection      `json:"selection" yaml:"selection"`
	Split            *SplitSummary          `json:"split" yaml:"split"`
	HighlyCorrelated []stats.Pair           `json:"highlyCorrelated,omitempty" yaml:"highlyCorrelated,omitempty"`
	Imbalance        *stats.ImbalanceReport `json:"imbalance,omitempty" yaml:"imbalance,omitempty"`
	Preprocessing    []string               `json:"preprocessing,omitempty" yaml:"preprocessing,omitempty"`
	Model            *ModelSummary          `json:"model" yaml:"model"`
	Evaluation       *EvaluationSummary     `json:"evaluation" yaml:"evaluation"`
}

// Summarize reduces s to a Summary.
func Summarize(s *pipeline.Snapshot) *Summary {
	out := &Summary{
		Stage:     s.Stage.String(),
		Dataset:   s.Dataset,
		Selection: s.Selection.Clone(),
	}
	if s.Split != nil {
		out.Split = &SplitSummary{
			Train:      len(s.Split.Train),
			Test:       len(s.Split.Test),
			Ratio:      s.Split.Ratio,
			Stratified: s.Split.Stratified,
			Seed:       s.Split.Seed,
			Note:       s.Split.Note,
		}
	}
	if s.Correlation != nil {
		out.HighlyCorrelated = append([]stats.Pair(nil), s.Correlation.HighlyCorrelated...)
	}
	if s.Exploration != nil {
		imb := s.Exploration.Imbalance
		out.Imbalance = &imb
	}
	if s.Plan != nil {
		out.Preprocessing = append([]string(nil), s.Plan.Steps...)
	}
	if m := s.Model; m != nil {
		out.Model = &ModelSummary{
			Backend:               m.Backend,
			Hyperparameters:       m.Hyperparameters,
			Features:              append([]string(nil), m.FeatureNames...),
			Classes:               append([]string(nil), m.TargetClasses...),
			TrainingAccuracy:      m.TrainingAccuracy,
			TrainingSamples:       m.TrainingSamples,
			CoefficientsAvailable: m.CoefficientsAvailable,
			Coefficients:          append([]backend.Coefficient(nil), m.Coefficients...),
		}
	}
	if ev := s.Evaluation; ev != nil {
		out.Evaluation = &EvaluationSummary{
			Accuracy:  ev.Accuracy,
			Precision: ev.Precision,
			Recall:    ev.Recall,
			F1:        ev.F1,
			AUC:       ev.AUC,
			LogLoss:   ev.LogLoss,
			Averaging: string(ev.Averaging),
			Labels:    append([]string(nil), ev.Labels...),
			Confusion: ev.Clone().Confusion,
			Samples:   ev.Samples,
			Skipped:   ev.Skipped,
		}
	}
	return out
}

// WriteSummary encodes the summary of s in the given format.
func WriteSummary(w io.Writer, s *pipeline.Snapshot, format Format) error {
	if s == nil {
		return errors.NewValidationError("snapshot", "is required", nil)
	}
	sum := Summarize(s)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(sum), "encode json summary")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sum); err != nil {
			return errors.Wrap(err, "encode yaml summary")
		}
		return errors.Wrap(enc.Close(), "flush yaml summary")
	default:
		return errors.NewValidationError("format", "must be json or yaml", string(format))
	}
}
