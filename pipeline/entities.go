package pipeline

import (
	"time"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/metrics"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// Exploration is the exploratory analysis of the selected columns.
type Exploration struct {
	Profiles    []dataset.ColumnProfile         `json:"profiles"`
	Numeric     map[string]stats.NumericSummary `json:"numeric"`
	Categorical map[string]stats.FrequencyTable `json:"categorical"`
	Target      stats.FrequencyTable            `json:"target"`
	Imbalance   stats.ImbalanceReport           `json:"imbalance"`
}

// Clone returns a deep copy of e.
func (e *Exploration) Clone() *Exploration {
	if e == nil {
		return nil
	}
	c := &Exploration{
		Profiles:    make([]dataset.ColumnProfile, len(e.Profiles)),
		Numeric:     make(map[string]stats.NumericSummary, len(e.Numeric)),
		Categorical: make(map[string]stats.FrequencyTable, len(e.Categorical)),
		Target:      cloneTable(e.Target),
		Imbalance:   e.Imbalance,
	}
	for i, p := range e.Profiles {
		p.SampleValues = append([]string(nil), p.SampleValues...)
		c.Profiles[i] = p
	}
	for k, v := range e.Numeric {
		c.Numeric[k] = v
	}
	for k, v := range e.Categorical {
		c.Categorical[k] = cloneTable(v)
	}
	c.Imbalance.Classes = append([]stats.Frequency(nil), e.Imbalance.Classes...)
	return c
}

func cloneTable(t stats.FrequencyTable) stats.FrequencyTable {
	t.Full = append([]stats.Frequency(nil), t.Full...)
	t.Top = append([]stats.Frequency(nil), t.Top...)
	return t
}

// TrainingConfig records the data a model was trained on.
type TrainingConfig struct {
	Selection  dataset.Selection `json:"selectedColumns"`
	SplitRatio float64           `json:"splitRatio"`
	Stratified bool              `json:"stratified"`
	// DataShape is rows x columns of the dataset at training time.
	DataShape [2]int `json:"dataShape"`
}

// TrainedModel is a fitted model with everything needed to reproduce its
// predictions. The handle is owned by the backend and never mutated.
// TargetClasses maps class index to label.
type TrainedModel struct {
	Backend               string                  `json:"backend"`
	Handle                backend.Handle          `json:"-" yaml:"-"`
	Hyperparameters       backend.Hyperparameters `json:"hyperparameters"`
	FeatureNames          []string                `json:"featureNames"`
	TargetClasses         []string                `json:"targetClasses"`
	Coefficients          []backend.Coefficient   `json:"coefficients"`
	Intercepts            []float64               `json:"intercepts"`
	CoefficientsAvailable bool                    `json:"coefficientsAvailable"`
	TrainingAccuracy      float64                 `json:"trainingAccuracy"`
	TrainingSamples       int                     `json:"trainingSamples"`
	Plan                  *preprocessing.Plan     `json:"plan"`
	Config                TrainingConfig          `json:"trainingConfig"`
	TrainedAt             time.Time               `json:"trainedAt"`
}

// Clone returns a copy of m sharing only the immutable handle.
func (m *TrainedModel) Clone() *TrainedModel {
	if m == nil {
		return nil
	}
	c := *m
	c.FeatureNames = append([]string(nil), m.FeatureNames...)
	c.TargetClasses = append([]string(nil), m.TargetClasses...)
	c.Coefficients = append([]backend.Coefficient(nil), m.Coefficients...)
	c.Intercepts = append([]float64(nil), m.Intercepts...)
	c.Plan = m.Plan.Clone()
	c.Config.Selection = m.Config.Selection.Clone()
	return &c
}

// Evaluation is the performance of one model on one held-out partition.
type Evaluation struct {
	metrics.Report
	// Labels names the rows and columns of the confusion matrix.
	Labels []string `json:"labels"`
	// Skipped counts test rows whose target was missing or unknown to the model.
	Skipped int `json:"skipped"`
}

// Clone returns a deep copy of e.
func (e *Evaluation) Clone() *Evaluation {
	if e == nil {
		return nil
	}
	return &Evaluation{
		Report:  *e.Report.Clone(),
		Labels:  append([]string(nil), e.Labels...),
		Skipped: e.Skipped,
	}
}

// Predictions are the model outputs for a new dataset.
type Predictions struct {
	Classes       []string    `json:"classes"`
	Labels        []string    `json:"labels"`
	Probabilities [][]float64 `json:"probabilities"`
}
