// Standard attribute keys for pipeline logging.
//
// Keys follow a dotted naming convention ("pipeline.stage", "data.samples")
// so records can be filtered by prefix.

package log

// Session and pipeline context.
const (
	// SessionIDKey identifies one interactive analysis session.
	SessionIDKey = "session.id"

	// StageKey is the stage name an operation runs in.
	StageKey = "pipeline.stage"

	// FromStageKey and ToStageKey describe a navigation.
	FromStageKey = "pipeline.from"
	ToStageKey   = "pipeline.to"

	// EntityKey names an artifact such as "Split" or "Model".
	EntityKey = "pipeline.entity"

	// InvalidatedKey lists entities cleared by a cascade.
	InvalidatedKey = "pipeline.invalidated"

	// OperationKey is the action being performed, e.g. "train" or "split".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// ModelNameKey identifies the model type.
	ModelNameKey = "model.name"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnKey   = "data.column"
	TargetKey   = "data.target"
	ClassesKey  = "data.classes"
	SourceKey   = "data.source"
)

// Training and evaluation.
const (
	DurationMsKey   = "perf.duration_ms"
	AccuracyKey     = "metrics.accuracy"
	F1ScoreKey      = "metrics.f1"
	LossKey         = "metrics.loss"
	IterationKey    = "training.iteration"
	LearningRateKey = "hyperparams.learning_rate"
	PenaltyKey      = "hyperparams.penalty"
	RandomSeedKey   = "config.random_seed"
	SplitRatioKey   = "config.split_ratio"
	StratifiedKey   = "config.stratified"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard values for OperationKey.
const (
	OperationLoad       = "load"
	OperationSelect     = "select_columns"
	OperationSplit      = "split"
	OperationCorrelate  = "correlate"
	OperationExplore    = "explore"
	OperationPlan       = "plan"
	OperationFit        = "fit"
	OperationEvaluate   = "evaluate"
	OperationPredict    = "predict"
	OperationExport     = "export"
	OperationImport     = "import"
	OperationNavigate   = "navigate"
	OperationInvalidate = "invalidate"
)
