package pipeline

import (
	"context"
	"time"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/metrics"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
	"github.com/YuminosukeSato/scigo-studio/sampling"
)

// runAsync runs fn on its own goroutine and waits for its result or for
// ctx to end. A panic in fn becomes an error. When ctx ends first the
// result is discarded.
func runAsync[T any](ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := errors.SafeCall(op, func() (T, error) { return fn(ctx) })
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// begin marks the orchestrator busy after the stage check passes. The
// caller must call end.
func (o *Orchestrator) begin(op string, s Stage, check func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage(op, s); err != nil {
		return err
	}
	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}
	o.busy = true
	return nil
}

// labelledRows keeps the rows whose target is a known class and returns
// them with their class indices.
func labelledRows(ds *dataset.Dataset, target string, classes []string, rows []int) ([]int, []int, int, error) {
	values, err := ds.ColumnAt(target, rows)
	if err != nil {
		return nil, nil, 0, err
	}
	codes := preprocessing.EncodeLabels(classes, values)
	kept := make([]int, 0, len(rows))
	y := make([]int, 0, len(rows))
	for i, c := range codes {
		if c < 0 {
			continue
		}
		kept = append(kept, rows[i])
		y = append(y, c)
	}
	return kept, y, len(rows) - len(kept), nil
}

type trainJob struct {
	data      *dataset.Dataset
	selection dataset.Selection
	split     *sampling.Result
	plan      *preprocessing.Plan
	backend   backend.ModelBackend
	hp        backend.Hyperparameters
	now       func() time.Time
}

func (j trainJob) run(ctx context.Context) (*TrainedModel, error) {
	target, err := j.data.Column(j.selection.Target)
	if err != nil {
		return nil, err
	}
	classes := preprocessing.TargetClasses(target)
	if len(classes) < 2 {
		return nil, errors.NewValueError("train", "the target needs at least two classes")
	}

	rows, y, _, err := labelledRows(j.data, j.selection.Target, classes, j.split.Train)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewInsufficientDataError("train", 0, 0)
	}
	perClass := make([]int, len(classes))
	for _, c := range y {
		perClass[c]++
	}
	for k, n := range perClass {
		if n == 0 {
			return nil, errors.NewClassInsufficientDataError("train", classes[k], 0, 0)
		}
	}
	X, err := j.plan.Transform(j.data, rows)
	if err != nil {
		return nil, errors.Wrap(err, "build training matrix")
	}

	res, err := j.backend.Train(ctx, X, y, len(classes), j.hp)
	if err != nil {
		return nil, err
	}
	ext, err := backend.ExtractCoefficients(j.backend, res.Handle, j.plan.Features, classes)
	if err != nil {
		return nil, err
	}

	return &TrainedModel{
		Backend:               j.backend.Name(),
		Handle:                res.Handle,
		Hyperparameters:       j.hp,
		FeatureNames:          append([]string(nil), j.plan.Features...),
		TargetClasses:         classes,
		Coefficients:          ext.Coefficients,
		Intercepts:            ext.Intercepts,
		CoefficientsAvailable: ext.Available,
		TrainingAccuracy:      res.TrainingAccuracy,
		TrainingSamples:       len(rows),
		Plan:                  j.plan,
		Config: TrainingConfig{
			Selection:  j.selection,
			SplitRatio: j.split.Ratio,
			Stratified: j.split.Stratified,
			DataShape:  [2]int{j.data.NumRows(), j.data.NumCols()},
		},
		TrainedAt: j.now(),
	}, nil
}

// Train fits a model on the training partition. Training runs off the
// lock; the model is installed only when it completes successfully, and a
// cancelled ctx leaves the previous state untouched.
func (o *Orchestrator) Train(ctx context.Context, hp backend.Hyperparameters) (*TrainedModel, error) {
	var job trainJob
	err := o.begin("train", StageTrain, func() error {
		if o.plan == nil {
			return errors.NewPreconditionError("train", o.stage.String(), "a preprocessing plan must exist")
		}
		if o.split == nil {
			return errors.NewPreconditionError("train", o.stage.String(), "a train/test split must exist")
		}
		if err := hp.Validate(); err != nil {
			return err
		}
		job = trainJob{
			data:      o.data,
			selection: o.selection.Clone(),
			split:     o.split.Clone(),
			plan:      o.plan.Clone(),
			backend:   o.opt.Backend,
			hp:        hp,
			now:       o.opt.Clock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := runAsync(ctx, "train", job.run)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
	if err != nil {
		o.logger.Error("training failed", err, log.OperationKey, log.OperationFit)
		return nil, err
	}
	o.model = m
	o.invalidate(EntityModel)
	o.logger.Info("model installed",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, m.Backend,
		log.AccuracyKey, m.TrainingAccuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m.Clone(), nil
}

func (o *Orchestrator) backendFor(name string) (backend.ModelBackend, error) {
	if name == "" || name == o.opt.Backend.Name() {
		return o.opt.Backend, nil
	}
	return backend.New(name)
}

// EvaluateModel scores m on the given rows of ds. Rows whose target is
// missing or unknown to the model are skipped.
func EvaluateModel(b backend.ModelBackend, m *TrainedModel, ds *dataset.Dataset, rows []int) (*Evaluation, error) {
	if missing := ds.MissingColumns(m.Config.Selection.Columns()); len(missing) > 0 {
		return nil, errors.NewMissingColumnsError(missing)
	}
	kept, y, skipped, err := labelledRows(ds, m.Config.Selection.Target, m.TargetClasses, rows)
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		return nil, errors.NewInsufficientDataError("test", 0, 0)
	}
	X, err := m.Plan.Transform(ds, kept)
	if err != nil {
		return nil, errors.Wrap(err, "build test matrix")
	}
	pred, err := b.Predict(m.Handle, X)
	if err != nil {
		return nil, err
	}
	proba, err := b.PredictProba(m.Handle, X)
	if err != nil {
		return nil, err
	}
	report, err := metrics.Evaluate(y, pred, len(m.TargetClasses))
	if err != nil {
		return nil, errors.NewModelInferenceError("evaluate", err)
	}
	if err := report.ScoreProbabilities(y, proba); err != nil {
		return nil, errors.NewModelInferenceError("evaluate", err)
	}
	return &Evaluation{
		Report:  *report,
		Labels:  append([]string(nil), m.TargetClasses...),
		Skipped: skipped,
	}, nil
}

// Evaluate scores the installed model on the held-out partition.
func (o *Orchestrator) Evaluate(ctx context.Context) (*Evaluation, error) {
	var (
		b     backend.ModelBackend
		m     *TrainedModel
		data  *dataset.Dataset
		split *sampling.Result
	)
	err := o.begin("evaluate", StageEvaluate, func() error {
		if o.model == nil {
			return errors.NewPreconditionError("evaluate", o.stage.String(), "a trained model must exist")
		}
		if o.split == nil {
			return errors.NewPreconditionError("evaluate", o.stage.String(), "a train/test split must exist")
		}
		var err error
		if b, err = o.backendFor(o.model.Backend); err != nil {
			return err
		}
		m, data, split = o.model.Clone(), o.data, o.split.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev, err := runAsync(ctx, "evaluate", func(context.Context) (*Evaluation, error) {
		return EvaluateModel(b, m, data, split.Test)
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
	if err != nil {
		o.logger.Error("evaluation failed", err, log.OperationKey, log.OperationEvaluate)
		return nil, err
	}
	o.evaluation = ev
	o.invalidate(EntityEvaluation)
	o.logger.Info("model evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, ev.Samples,
		log.AccuracyKey, ev.Accuracy,
		log.F1ScoreKey, ev.F1,
		"auc", ev.AUC,
		"log_loss", ev.LogLoss,
		"averaging", string(ev.Averaging),
	)
	return ev.Clone(), nil
}

// PredictModel applies m to every row of ds. ds must contain every
// predictor the model was trained with.
func PredictModel(b backend.ModelBackend, m *TrainedModel, ds *dataset.Dataset) (*Predictions, error) {
	if missing := ds.MissingColumns(m.Config.Selection.Predictors); len(missing) > 0 {
		return nil, errors.NewMissingColumnsError(missing)
	}
	X, err := m.Plan.Transform(ds, nil)
	if err != nil {
		return nil, err
	}
	idx, err := b.Predict(m.Handle, X)
	if err != nil {
		return nil, err
	}
	proba, err := b.PredictProba(m.Handle, X)
	if err != nil {
		return nil, err
	}

	out := &Predictions{
		Classes:       append([]string(nil), m.TargetClasses...),
		Labels:        make([]string, len(idx)),
		Probabilities: make([][]float64, len(idx)),
	}
	for i, k := range idx {
		if k < 0 || k >= len(m.TargetClasses) {
			return nil, errors.NewModelInferenceError("predict", errors.Newf("class index %d out of range", k))
		}
		out.Labels[i] = m.TargetClasses[k]
		out.Probabilities[i] = proba.RawRowView(i)
	}
	return out, nil
}

// Predict applies the installed model to a new dataset at the Predict stage.
func (o *Orchestrator) Predict(ds *dataset.Dataset) (*Predictions, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireStage("predict", StagePredict); err != nil {
		return nil, err
	}
	if o.model == nil {
		return nil, errors.NewPreconditionError("predict", o.stage.String(), "a trained model must exist")
	}
	if ds == nil {
		return nil, errors.NewValidationError("dataset", "is required", nil)
	}
	b, err := o.backendFor(o.model.Backend)
	if err != nil {
		return nil, err
	}
	p, err := PredictModel(b, o.model, ds)
	if err != nil {
		o.logger.Warn("prediction rejected", err, log.OperationKey, log.OperationPredict)
		return nil, err
	}
	o.logger.Info("predictions made", log.OperationKey, log.OperationPredict, log.SamplesKey, len(p.Labels))
	return p, nil
}
