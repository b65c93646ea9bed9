// Package pipeline sequences the analysis stages: it owns every derived
// entity, gates navigation between stages and clears stale results when an
// upstream input changes.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
	"github.com/YuminosukeSato/scigo-studio/sampling"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// Options configures an Orchestrator.
type Options struct {
	Classifier      dataset.Classifier
	Sampling        sampling.Options
	Correlation     stats.CorrelationOptions
	Planner         preprocessing.Options
	ImbalanceRatio  float64
	Hyperparameters backend.Hyperparameters
	Backend         backend.ModelBackend
	Logger          log.Logger
	Clock           func() time.Time
}

// DefaultOptions returns the standard thresholds with the logistic backend.
func DefaultOptions() Options {
	return Options{
		Classifier:      dataset.DefaultClassifier(),
		Sampling:        sampling.DefaultOptions(),
		Correlation:     stats.DefaultCorrelationOptions(),
		Planner:         preprocessing.DefaultOptions(),
		ImbalanceRatio:  stats.DefaultImbalanceRatio,
		Hyperparameters: backend.DefaultHyperparameters(),
	}
}

// Orchestrator is the single owner of pipeline state. All methods are safe
// for concurrent use; they are serialised, and while Train or Evaluate is
// running every other mutating call fails with a PreconditionError.
type Orchestrator struct {
	mu     sync.Mutex
	busy   bool
	opt    Options
	graph  *Graph
	logger log.Logger

	stage       Stage
	data        *dataset.Dataset
	profiles    []dataset.ColumnProfile
	selection   dataset.Selection
	split       *sampling.Result
	correlation *stats.CorrelationMatrix
	exploration *Exploration
	plan        *preprocessing.Plan
	model       *TrainedModel
	evaluation  *Evaluation
}

// New creates an Orchestrator at the Upload stage.
func New(opt Options) *Orchestrator {
	if opt.Backend == nil {
		opt.Backend = backend.NewLogistic()
	}
	if opt.Logger == nil {
		opt.Logger = log.GetLoggerWithName("pipeline")
	}
	if opt.Clock == nil {
		opt.Clock = time.Now
	}
	if opt.ImbalanceRatio <= 0 {
		opt.ImbalanceRatio = stats.DefaultImbalanceRatio
	}
	return &Orchestrator{
		opt:    opt,
		graph:  DefaultGraph(),
		logger: opt.Logger,
		stage:  StageUpload,
	}
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Busy reports whether a training or evaluation run is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

func (o *Orchestrator) checkIdle(op string) error {
	if o.busy {
		return errors.NewPreconditionError(op, o.stage.String(), "another operation is in progress")
	}
	return nil
}

func (o *Orchestrator) requireStage(op string, s Stage) error {
	if err := o.checkIdle(op); err != nil {
		return err
	}
	if o.stage != s {
		return errors.NewPreconditionError(op, o.stage.String(), fmt.Sprintf("must be at stage %s", s))
	}
	return nil
}

// gate reports whether the pipeline may enter s and, if not, what is
// missing.
func (o *Orchestrator) gate(s Stage) (bool, string) {
	switch s {
	case StageUpload:
		return true, ""
	case StageColumns:
		return o.data != nil, "a dataset must be loaded"
	case StageSplit, StageExplore:
		return o.selection.Complete(), "at least one predictor and a target must be selected"
	case StageCorrelate:
		return o.split != nil, "a train/test split must exist"
	case StagePreprocess:
		return o.exploration != nil, "exploratory analysis must be run"
	case StageTrain:
		return o.plan != nil, "a preprocessing plan must exist"
	case StageEvaluate:
		return o.model != nil, "a trained model must exist"
	case StagePredict:
		return o.evaluation != nil, "the model must be evaluated"
	default:
		return false, "no such stage"
	}
}

// CanEnter reports whether the gate of s currently passes.
func (o *Orchestrator) CanEnter(s Stage) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	ok, _ := o.gate(s)
	return ok
}

func (o *Orchestrator) moveTo(s Stage) {
	if s == o.stage {
		return
	}
	o.logger.Info("stage changed", log.FromStageKey, o.stage.String(), log.ToStageKey, s.String())
	o.stage = s
}

// Advance moves to the next stage if its gate passes. A failed advance
// leaves the stage unchanged.
func (o *Orchestrator) Advance() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("advance"); err != nil {
		return err
	}
	if o.stage >= LastStage {
		return errors.NewPreconditionError("advance", o.stage.String(), "already at the last stage")
	}
	next := o.stage + 1
	if ok, req := o.gate(next); !ok {
		return errors.NewPreconditionError("advance", o.stage.String(), req)
	}
	o.moveTo(next)
	return nil
}

// Retreat moves to the previous stage without discarding anything. At the
// first stage it does nothing.
func (o *Orchestrator) Retreat() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("retreat"); err != nil {
		return err
	}
	if o.stage > FirstStage {
		o.moveTo(o.stage - 1)
	}
	return nil
}

// JumpTo moves to any stage already reached, or to the next stage when its
// gate passes.
func (o *Orchestrator) JumpTo(s Stage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("jump"); err != nil {
		return err
	}
	switch {
	case !s.Valid():
		return errors.NewNavigationError(o.stage.String(), s.String(), "no such stage")
	case s <= o.stage:
	case s == o.stage+1:
		if ok, req := o.gate(s); !ok {
			return errors.NewNavigationError(o.stage.String(), s.String(), req)
		}
	default:
		return errors.NewNavigationError(o.stage.String(), s.String(), "stages cannot be skipped")
	}
	o.moveTo(s)
	return nil
}

// ReviseColumnSelection replaces the selection from the Correlate or
// Explore stage and clears everything derived from it, even when sel equals
// the current selection.
func (o *Orchestrator) ReviseColumnSelection(sel dataset.Selection) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("revise selection"); err != nil {
		return err
	}
	if o.stage != StageCorrelate && o.stage != StageExplore {
		return errors.NewPreconditionError("revise selection", o.stage.String(),
			fmt.Sprintf("selection can only be revised at stage %s or %s", StageCorrelate, StageExplore))
	}
	if !sel.Complete() {
		return errors.NewValidationError("selection", "at least one predictor and a target are required", sel.Columns())
	}
	if err := sel.Validate(o.profiles); err != nil {
		return err
	}
	o.selection = sel.Clone()
	o.invalidate(EntityColumns)
	return nil
}

// LoadExternalModel installs a model trained elsewhere, at any stage. Only
// the evaluation is cleared.
func (o *Orchestrator) LoadExternalModel(m *TrainedModel) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("load model"); err != nil {
		return err
	}
	switch {
	case m == nil || m.Handle == nil:
		return errors.NewValidationError("model", "a trained handle is required", nil)
	case len(m.FeatureNames) == 0:
		return errors.NewValidationError("model", "feature names are required", nil)
	case len(m.TargetClasses) < 2:
		return errors.NewValidationError("model", "at least two target classes are required", len(m.TargetClasses))
	case m.Plan == nil:
		return errors.NewValidationError("model", "a preprocessing plan is required", nil)
	}
	o.model = m.Clone()
	o.invalidate(EntityModel)
	o.logger.Info("external model loaded", log.ModelNameKey, m.Backend, log.FeaturesKey, len(m.FeatureNames))
	return nil
}

// SkipToEvaluation jumps straight to the Evaluate stage when a split and a
// model are both present. Intermediate results are kept as they are.
func (o *Orchestrator) SkipToEvaluation() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("skip to evaluation"); err != nil {
		return err
	}
	if o.split == nil {
		return errors.NewPreconditionError("skip to evaluation", o.stage.String(), "a train/test split must exist")
	}
	if o.model == nil {
		return errors.NewPreconditionError("skip to evaluation", o.stage.String(), "a trained model must exist")
	}
	o.moveTo(StageEvaluate)
	return nil
}

// invalidate clears every entity derived from changed.
func (o *Orchestrator) invalidate(changed Entity) {
	deps := o.graph.Dependents(changed)
	var cleared []string
	for _, e := range deps {
		if o.clear(e) {
			cleared = append(cleared, e.String())
		}
	}
	if len(cleared) > 0 {
		o.logger.Info("derived state invalidated", log.EntityKey, changed.String(), log.InvalidatedKey, cleared)
	}
}

// clear drops e and reports whether it was present.
func (o *Orchestrator) clear(e Entity) bool {
	var present bool
	switch e {
	case EntityDataset:
		present = o.data != nil
		o.data, o.profiles = nil, nil
	case EntityColumns:
		present = len(o.selection.Columns()) > 0
		o.selection = dataset.Selection{}
	case EntitySplit:
		present = o.split != nil
		o.split = nil
	case EntityCorrelation:
		present = o.correlation != nil
		o.correlation = nil
	case EntityExploration:
		present = o.exploration != nil
		o.exploration = nil
	case EntityPreprocessing:
		present = o.plan != nil
		o.plan = nil
	case EntityModel:
		present = o.model != nil
		o.model = nil
	case EntityEvaluation:
		present = o.evaluation != nil
		o.evaluation = nil
	}
	return present
}

// Dataset returns the loaded dataset, which is immutable.
func (o *Orchestrator) Dataset() *dataset.Dataset {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data
}

// Profiles returns the column profiles of the loaded dataset.
func (o *Orchestrator) Profiles() []dataset.ColumnProfile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]dataset.ColumnProfile(nil), o.profiles...)
}

// Selection returns the current column selection.
func (o *Orchestrator) Selection() dataset.Selection {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selection.Clone()
}

// SplitResult returns a copy of the split, or nil.
func (o *Orchestrator) SplitResult() *sampling.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.split.Clone()
}

// Correlation returns a copy of the correlation matrix, or nil.
func (o *Orchestrator) Correlation() *stats.CorrelationMatrix {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.correlation.Clone()
}

// Exploration returns a copy of the exploratory analysis, or nil.
func (o *Orchestrator) Exploration() *Exploration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.exploration.Clone()
}

// Plan returns a copy of the preprocessing plan, or nil.
func (o *Orchestrator) Plan() *preprocessing.Plan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.plan.Clone()
}

// Model returns a copy of the trained model, or nil.
func (o *Orchestrator) Model() *TrainedModel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model.Clone()
}

// Evaluation returns a copy of the evaluation, or nil.
func (o *Orchestrator) Evaluation() *Evaluation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.evaluation.Clone()
}
