package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/metrics"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
)

// Artifact format identifiers.
const (
	ArtifactModelType = "logistic_regression"
	ArtifactPlatform  = "scigo-studio"
	ArtifactVersion   = "1.0"
)

// Artifact is the exported model file.
type Artifact struct {
	Metadata       ArtifactMetadata      `json:"metadata"`
	Model          ArtifactModel         `json:"model"`
	Preprocessing  ArtifactPreprocessing `json:"preprocessing"`
	TrainingConfig TrainingConfig        `json:"trainingConfig"`
	Performance    *ArtifactPerformance  `json:"performance"`
}

// ArtifactMetadata identifies the producer of a model file.
type ArtifactMetadata struct {
	ModelType  string `json:"modelType"`
	ExportDate string `json:"exportDate"`
	Platform   string `json:"platform"`
	Version    string `json:"version"`
}

// ArtifactModel holds the trained weights with the hyperparameters and
// names needed to rebuild the model.
type ArtifactModel struct {
	Type            string                 `json:"type"`
	Parameters      map[string]interface{} `json:"parameters"`
	Coefficients    []backend.Coefficient  `json:"coefficients"`
	Intercept       []float64              `json:"intercept"`
	TrainingMetrics TrainingMetrics        `json:"trainingMetrics"`
	FeatureNames    []string               `json:"featureNames"`
	TargetClasses   []string               `json:"targetClasses"`
}

// TrainingMetrics summarises the fit on the training partition.
type TrainingMetrics struct {
	Accuracy              float64 `json:"accuracy"`
	Samples               int     `json:"samples"`
	CoefficientsAvailable bool    `json:"coefficientsAvailable"`
}

// ArtifactPreprocessing carries the full plan in Parameters, enough to
// rebuild feature matrices for new data.
type ArtifactPreprocessing struct {
	ScalingMethod  preprocessing.ScalingMethod `json:"scalingMethod"`
	EncodingMethod string                      `json:"encodingMethod"`
	Parameters     *preprocessing.Plan         `json:"parameters"`
	Mappings       map[string]map[string]int   `json:"mappings"`
}

// ArtifactPerformance is the held-out evaluation at export time. AUC is
// macro-averaged one-vs-rest when there are more than two classes.
type ArtifactPerformance struct {
	Accuracy        float64           `json:"accuracy"`
	Precision       float64           `json:"precision"`
	Recall          float64           `json:"recall"`
	F1Score         float64           `json:"f1Score"`
	AUC             float64           `json:"auc"`
	LogLoss         float64           `json:"logLoss"`
	ConfusionMatrix [][]int           `json:"confusionMatrix"`
	Averaging       metrics.Averaging `json:"averaging"`
	Labels          []string          `json:"labels"`
}

// NewArtifact describes m, and ev when it is not nil.
func NewArtifact(m *TrainedModel, ev *Evaluation, exported time.Time) *Artifact {
	a := &Artifact{
		Metadata: ArtifactMetadata{
			ModelType:  ArtifactModelType,
			ExportDate: exported.UTC().Format(time.RFC3339),
			Platform:   ArtifactPlatform,
			Version:    ArtifactVersion,
		},
		Model: ArtifactModel{
			Type:         m.Backend,
			Parameters:   m.Hyperparameters.Params(),
			Coefficients: append([]backend.Coefficient(nil), m.Coefficients...),
			Intercept:    append([]float64(nil), m.Intercepts...),
			TrainingMetrics: TrainingMetrics{
				Accuracy:              m.TrainingAccuracy,
				Samples:               m.TrainingSamples,
				CoefficientsAvailable: m.CoefficientsAvailable,
			},
			FeatureNames:  append([]string(nil), m.FeatureNames...),
			TargetClasses: append([]string(nil), m.TargetClasses...),
		},
		Preprocessing: ArtifactPreprocessing{
			ScalingMethod:  m.Plan.ScalingMethod,
			EncodingMethod: preprocessing.EncodingLabel,
			Parameters:     m.Plan.Clone(),
			Mappings:       m.Plan.Mappings(),
		},
		TrainingConfig: m.Config,
	}
	a.TrainingConfig.Selection = m.Config.Selection.Clone()
	if ev != nil {
		a.Performance = &ArtifactPerformance{
			Accuracy:        ev.Accuracy,
			Precision:       ev.Precision,
			Recall:          ev.Recall,
			F1Score:         ev.F1,
			AUC:             ev.AUC,
			LogLoss:         ev.LogLoss,
			ConfusionMatrix: ev.Clone().Confusion,
			Averaging:       ev.Averaging,
			Labels:          append([]string(nil), ev.Labels...),
		}
	}
	return a
}

// WriteTo encodes a as indented JSON.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return 0, errors.Wrap(err, "encode model artifact")
	}
	n, err := w.Write(append(data, '\n'))
	return int64(n), errors.Wrap(err, "write model artifact")
}

var requiredSections = []string{"metadata", "model", "preprocessing", "trainingConfig", "performance"}

var requiredFields = []struct{ section, field string }{
	{"metadata", "modelType"},
	{"metadata", "platform"},
	{"model", "type"},
	{"model", "parameters"},
}

// ReadArtifact decodes and validates a model file. Every top-level section
// must be present; performance may be null.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read model artifact")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.NewImportValidationError("json", err.Error())
	}
	for _, s := range requiredSections {
		if _, ok := top[s]; !ok {
			return nil, errors.NewImportValidationError(s, "section is missing")
		}
	}
	for _, f := range requiredFields {
		var section map[string]json.RawMessage
		if err := json.Unmarshal(top[f.section], &section); err != nil || section == nil {
			return nil, errors.NewImportValidationError(f.section, "must be an object")
		}
		raw, ok := section[f.field]
		if !ok || isEmptyJSON(raw) {
			return nil, errors.NewImportValidationError(f.section+"."+f.field, "is required")
		}
	}

	// UseNumber keeps integer parameters such as the seed exact.
	var a Artifact
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&a); err != nil {
		return nil, errors.NewImportValidationError("json", err.Error())
	}
	return &a, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", `""`, "{}":
		return true
	}
	return false
}

// TrainedModel rebuilds a usable model from a. The backend named by the
// artifact restores the handle from the exported coefficients.
func (a *Artifact) TrainedModel() (*TrainedModel, error) {
	b, err := backend.New(a.Model.Type)
	if err != nil {
		return nil, errors.NewImportValidationError("model.type", err.Error())
	}
	hp, err := backend.HyperparametersFromParams(a.Model.Parameters)
	if err != nil {
		return nil, errors.NewImportValidationError("model.parameters", err.Error())
	}

	features, classes := a.Model.FeatureNames, a.Model.TargetClasses
	if len(features) == 0 {
		return nil, errors.NewImportValidationError("model.featureNames", "at least one feature is required")
	}
	if len(classes) < 2 {
		return nil, errors.NewImportValidationError("model.targetClasses", "at least two classes are required")
	}
	plan := a.Preprocessing.Parameters
	if plan == nil {
		return nil, errors.NewImportValidationError("preprocessing.parameters", "the preprocessing plan is required")
	}
	if !equalStrings(plan.Features, features) {
		return nil, errors.NewImportValidationError("preprocessing.parameters", "plan features do not match model.featureNames")
	}
	if !a.TrainingConfig.Selection.Complete() {
		return nil, errors.NewImportValidationError("trainingConfig.selectedColumns", "predictors and target are required")
	}

	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	if len(a.Model.Coefficients) != rows*len(features) {
		return nil, errors.NewImportValidationError("model.coefficients",
			fmt.Sprintf("expected %d coefficients, got %d", rows*len(features), len(a.Model.Coefficients)))
	}
	for i, c := range a.Model.Coefficients {
		if c.Feature != features[i%len(features)] {
			return nil, errors.NewImportValidationError("model.coefficients",
				fmt.Sprintf("coefficient %d is for %q, expected %q", i, c.Feature, features[i%len(features)]))
		}
	}
	ext := &backend.Extraction{Coefficients: a.Model.Coefficients}
	w := &backend.Weights{Coef: ext.Matrix(len(features)), Intercept: a.Model.Intercept}
	if len(w.Intercept) == 0 {
		w.Intercept = make([]float64, rows)
	}
	h, err := b.Restore(w, len(classes), hp)
	if err != nil {
		return nil, errors.NewImportValidationError("model.coefficients", err.Error())
	}

	trainedAt, _ := time.Parse(time.RFC3339, a.Metadata.ExportDate)
	return &TrainedModel{
		Backend:               b.Name(),
		Handle:                h,
		Hyperparameters:       hp,
		FeatureNames:          append([]string(nil), features...),
		TargetClasses:         append([]string(nil), classes...),
		Coefficients:          append([]backend.Coefficient(nil), a.Model.Coefficients...),
		Intercepts:            append([]float64(nil), w.Intercept...),
		CoefficientsAvailable: a.Model.TrainingMetrics.CoefficientsAvailable,
		TrainingAccuracy:      a.Model.TrainingMetrics.Accuracy,
		TrainingSamples:       a.Model.TrainingMetrics.Samples,
		Plan:                  plan.Clone(),
		Config:                a.TrainingConfig,
		TrainedAt:             trainedAt,
	}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExportModel writes the installed model, with its evaluation when one
// exists, to w.
func (o *Orchestrator) ExportModel(w io.Writer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("export"); err != nil {
		return err
	}
	if o.model == nil {
		return errors.NewPreconditionError("export", o.stage.String(), "a trained model must exist")
	}
	if _, err := NewArtifact(o.model, o.evaluation, o.opt.Clock()).WriteTo(w); err != nil {
		return err
	}
	o.logger.Info("model exported", log.OperationKey, log.OperationExport, log.ModelNameKey, o.model.Backend)
	return nil
}

// ImportModel reads a model file and installs it as an external model.
// Nothing is installed when validation fails.
func (o *Orchestrator) ImportModel(r io.Reader) (*TrainedModel, error) {
	a, err := ReadArtifact(r)
	if err != nil {
		o.logger.Warn("model import rejected", err, log.OperationKey, log.OperationImport)
		return nil, err
	}
	m, err := a.TrainedModel()
	if err != nil {
		o.logger.Warn("model import rejected", err, log.OperationKey, log.OperationImport)
		return nil, err
	}
	if err := o.LoadExternalModel(m); err != nil {
		return nil, err
	}
	return m.Clone(), nil
}
