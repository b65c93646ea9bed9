package pipeline

import (
	"time"

	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
	"github.com/YuminosukeSato/scigo-studio/sampling"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// LoadDataset replaces the dataset from any stage. Everything derived from
// the previous dataset, the selection included, is discarded and the
// pipeline returns to the Upload stage.
func (o *Orchestrator) LoadDataset(ds *dataset.Dataset) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIdle("load dataset"); err != nil {
		return err
	}
	if ds == nil || ds.NumCols() == 0 {
		return errors.NewValidationError("dataset", "a dataset with at least one column is required", nil)
	}

	profiles := o.opt.Classifier.Profile(ds)
	o.clear(EntityDataset)
	o.invalidate(EntityDataset)
	o.data, o.profiles = ds, profiles
	o.moveTo(StageUpload)

	o.logger.Info("dataset loaded",
		log.SourceKey, ds.Name(),
		log.SamplesKey, ds.NumRows(),
		log.FeaturesKey, ds.NumCols(),
	)
	return nil
}

// SelectColumns sets the predictors and target at the Columns stage. A
// partial selection is accepted; the gate of the next stage requires it to
// be complete.
func (o *Orchestrator) SelectColumns(sel dataset.Selection) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage("select columns", StageColumns); err != nil {
		return err
	}
	if err := sel.Validate(o.profiles); err != nil {
		return err
	}
	o.selection = sel.Clone()
	o.invalidate(EntityColumns)
	o.logger.Info("columns selected",
		log.OperationKey, log.OperationSelect,
		log.TargetKey, sel.Target,
		log.FeaturesKey, len(sel.Predictors),
	)
	return nil
}

// Split partitions the rows into train and test sets. Stratification groups
// rows by target value.
func (o *Orchestrator) Split(ratio float64, stratify bool, seed int64) (*sampling.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage("split", StageSplit); err != nil {
		return nil, err
	}
	if !o.selection.Complete() {
		return nil, errors.NewPreconditionError("split", o.stage.String(), "at least one predictor and a target must be selected")
	}

	labels, err := o.data.Column(o.selection.Target)
	if err != nil {
		return nil, err
	}
	opt := o.opt.Sampling
	opt.Ratio, opt.Stratify, opt.Seed = ratio, stratify, seed
	res, err := sampling.Split(labels, opt)
	if err != nil {
		o.logger.Warn("split rejected", err, log.SplitRatioKey, ratio)
		return nil, err
	}

	o.split = res
	o.invalidate(EntitySplit)
	o.logger.Info("split created",
		log.OperationKey, log.OperationSplit,
		log.SplitRatioKey, ratio,
		log.StratifiedKey, res.Stratified,
		log.RandomSeedKey, seed,
		"train", len(res.Train),
		"test", len(res.Test),
	)
	if res.Note != "" {
		o.logger.Warn(res.Note, log.OperationKey, log.OperationSplit)
	}
	return res.Clone(), nil
}

// ComputeCorrelation correlates the numeric predictors over every row of
// the split.
func (o *Orchestrator) ComputeCorrelation() (*stats.CorrelationMatrix, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage("correlate", StageCorrelate); err != nil {
		return nil, err
	}
	if o.split == nil {
		return nil, errors.NewPreconditionError("correlate", o.stage.String(), "a train/test split must exist")
	}

	start := time.Now()
	names := o.selection.Predictors
	columns := make([][]string, len(names))
	for i, name := range names {
		col, err := o.data.Column(name)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	m, err := stats.ComputeCorrelationMatrix(names, columns, o.opt.Correlation)
	if err != nil {
		return nil, err
	}

	o.correlation = m
	o.invalidate(EntityCorrelation)
	o.logger.Info("correlation computed",
		log.OperationKey, log.OperationCorrelate,
		log.FeaturesKey, len(m.Columns),
		"excluded", len(m.Excluded),
		"highly_correlated", len(m.HighlyCorrelated),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m.Clone(), nil
}

func (o *Orchestrator) profilesFor(names []string) []dataset.ColumnProfile {
	byName := make(map[string]dataset.ColumnProfile, len(o.profiles))
	for _, p := range o.profiles {
		byName[p.Name] = p
	}
	out := make([]dataset.ColumnProfile, 0, len(names))
	for _, n := range names {
		if p, ok := byName[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Explore summarises every predictor by type and the target distribution.
func (o *Orchestrator) Explore() (*Exploration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage("explore", StageExplore); err != nil {
		return nil, err
	}
	if !o.selection.Complete() {
		return nil, errors.NewPreconditionError("explore", o.stage.String(), "at least one predictor and a target must be selected")
	}

	e := &Exploration{
		Profiles:    o.profilesFor(o.selection.Columns()),
		Numeric:     make(map[string]stats.NumericSummary),
		Categorical: make(map[string]stats.FrequencyTable),
	}
	for _, p := range e.Profiles {
		if p.Name == o.selection.Target {
			continue
		}
		raw, err := o.data.Column(p.Name)
		if err != nil {
			return nil, err
		}
		if p.Type == dataset.Numeric {
			e.Numeric[p.Name] = stats.DescribeColumn(raw)
		} else {
			e.Categorical[p.Name] = stats.DescribeCategorical(raw)
		}
	}
	target, err := o.data.Column(o.selection.Target)
	if err != nil {
		return nil, err
	}
	e.Target = stats.DescribeCategorical(target)
	e.Imbalance = stats.ClassImbalance(target, o.opt.ImbalanceRatio)

	o.exploration = e
	o.invalidate(EntityExploration)
	o.logger.Info("exploration completed",
		log.OperationKey, log.OperationExplore,
		log.ClassesKey, len(e.Target.Full),
		"imbalance_ratio", e.Imbalance.Ratio,
		"imbalanced", e.Imbalance.Imbalanced,
	)
	return e.Clone(), nil
}

// PlanPreprocessing builds the preparation of the predictor columns.
func (o *Orchestrator) PlanPreprocessing() (*preprocessing.Plan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage("plan preprocessing", StagePreprocess); err != nil {
		return nil, err
	}
	if o.exploration == nil {
		return nil, errors.NewPreconditionError("plan preprocessing", o.stage.String(), "exploratory analysis must be run")
	}

	plan, err := preprocessing.NewPlanner(o.opt.Planner).Plan(o.data, o.profilesFor(o.selection.Predictors))
	if err != nil {
		return nil, err
	}

	o.plan = plan
	o.invalidate(EntityPreprocessing)
	o.logger.Info("preprocessing planned",
		log.OperationKey, log.OperationPlan,
		log.FeaturesKey, len(plan.Features),
		"excluded", len(plan.Excluded),
		"steps", len(plan.Steps),
	)
	return plan.Clone(), nil
}
