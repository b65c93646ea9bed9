package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// Planner defaults.
const (
	DefaultMaxCategories = 50
	DefaultScalingRange  = 100.0
)

// Options controls the planner.
type Options struct {
	// MaxCategories is the most distinct values a categorical predictor
	// may have to be label-encoded. Wider columns are excluded.
	MaxCategories int
	// ScalingRange is the max-min range above which a numeric predictor
	// is scaled.
	ScalingRange float64
	// ScalingMethod is the scaler used for wide columns.
	ScalingMethod ScalingMethod
}

// DefaultOptions returns the standard thresholds with min-max scaling.
func DefaultOptions() Options {
	return Options{
		MaxCategories: DefaultMaxCategories,
		ScalingRange:  DefaultScalingRange,
		ScalingMethod: ScalingMinMax,
	}
}

// Planner builds a Plan from predictor columns.
type Planner struct {
	opt    Options
	logger log.Logger
}

// NewPlanner creates a Planner. Zero-valued options take their defaults.
func NewPlanner(opt Options) *Planner {
	def := DefaultOptions()
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = def.MaxCategories
	}
	if opt.ScalingRange <= 0 {
		opt.ScalingRange = def.ScalingRange
	}
	if opt.ScalingMethod == "" {
		opt.ScalingMethod = def.ScalingMethod
	}
	return &Planner{opt: opt, logger: log.GetLoggerWithName("preprocessing.planner")}
}

type numericColumn struct {
	name   string
	values []float64 // after mean fill
	spread float64
}

// Plan inspects the predictor columns described by profiles and returns
// the preparation to apply. Steps are logged in the order missing values,
// encoding, scaling.
func (pl *Planner) Plan(ds *dataset.Dataset, profiles []dataset.ColumnProfile) (*Plan, error) {
	if len(profiles) == 0 {
		return nil, errors.NewValidationError("predictors", "at least one predictor is required", 0)
	}

	plan := &Plan{
		Types:         make(map[string]dataset.ColumnType, len(profiles)),
		Means:         make(map[string]float64),
		ScalingMethod: ScalingNone,
		Missing:       []MissingPolicy{},
		Encodings:     []Encoding{},
		Scalings:      []Scaling{},
	}
	var missingSteps, encodingSteps, scalingSteps []string
	var numerics []numericColumn

	for _, prof := range profiles {
		raw, err := ds.Column(prof.Name)
		if err != nil {
			return nil, err
		}

		if prof.Type == dataset.Numeric {
			parsed := dataset.ParseNumbers(raw)
			summary := stats.DescribeNumeric(parsed)
			if summary.Missing > 0 {
				plan.Missing = append(plan.Missing, MissingPolicy{
					Column: prof.Name, Strategy: FillMean, Count: summary.Missing, Value: summary.Mean,
				})
				missingSteps = append(missingSteps, fmt.Sprintf(
					"Missing values: %s has %d missing or non-numeric value(s); filled with the column mean %.4g",
					prof.Name, summary.Missing, summary.Mean))
			}
			for i, v := range parsed {
				if !errors.IsFinite(v) {
					parsed[i] = summary.Mean
				}
			}
			plan.Features = append(plan.Features, prof.Name)
			plan.Types[prof.Name] = dataset.Numeric
			plan.Means[prof.Name] = summary.Mean
			numerics = append(numerics, numericColumn{name: prof.Name, values: parsed, spread: summary.Range()})
			continue
		}

		table := stats.DescribeCategorical(raw)
		if len(table.Full) > pl.opt.MaxCategories {
			plan.Excluded = append(plan.Excluded, prof.Name)
			encodingSteps = append(encodingSteps, fmt.Sprintf(
				"Encoding: %s excluded from the model; %d categories exceed the limit of %d",
				prof.Name, len(table.Full), pl.opt.MaxCategories))
			errors.Warn(errors.NewDataConversionWarning(prof.Name,
				fmt.Sprintf("%d categories exceed the encoding limit of %d; column excluded", len(table.Full), pl.opt.MaxCategories)))
			continue
		}

		enc := labelEncode(prof.Name, raw)
		enc.Fallback = enc.Lookup(table.Mode())
		plan.Encodings = append(plan.Encodings, enc)
		plan.Features = append(plan.Features, prof.Name)
		plan.Types[prof.Name] = dataset.Categorical
		encodingSteps = append(encodingSteps, fmt.Sprintf(
			"Encoding: %s label-encoded into %d integer codes in order of appearance", prof.Name, len(enc.Codes)))

		if table.Missing > 0 {
			plan.Missing = append(plan.Missing, MissingPolicy{
				Column: prof.Name, Strategy: FillMode, Count: table.Missing, Category: table.Mode(),
			})
			missingSteps = append(missingSteps, fmt.Sprintf(
				"Missing values: %s has %d missing value(s); filled with the most frequent category %q",
				prof.Name, table.Missing, table.Mode()))
		}
	}

	if len(plan.Features) == 0 {
		return nil, errors.NewValidationError("predictors", "no usable features remain after preprocessing", len(plan.Excluded))
	}

	var wide []numericColumn
	for _, nc := range numerics {
		if nc.spread > pl.opt.ScalingRange {
			wide = append(wide, nc)
		}
	}
	if len(wide) > 0 {
		scalings, err := pl.fitScalings(wide)
		if err != nil {
			return nil, err
		}
		plan.ScalingMethod = pl.opt.ScalingMethod
		plan.Scalings = scalings
		for _, nc := range wide {
			scalingSteps = append(scalingSteps, fmt.Sprintf(
				"Scaling: %s %s-scaled; range %.4g exceeds %.4g", nc.name, pl.opt.ScalingMethod, nc.spread, pl.opt.ScalingRange))
		}
	}

	if len(missingSteps) == 0 {
		missingSteps = []string{"Missing values: none found, no action needed"}
	}
	if len(encodingSteps) == 0 {
		encodingSteps = []string{"Encoding: no categorical predictors, no action needed"}
	}
	if len(scalingSteps) == 0 {
		scalingSteps = []string{fmt.Sprintf("Scaling: no numeric predictor range exceeds %.4g, no action needed", pl.opt.ScalingRange)}
	}
	plan.Steps = append(append(missingSteps, encodingSteps...), scalingSteps...)

	pl.logger.Info("Preprocessing plan built",
		log.OperationKey, log.OperationPlan,
		log.FeaturesKey, len(plan.Features),
		"plan.excluded", len(plan.Excluded),
		"plan.scaled", len(plan.Scalings),
	)
	return plan, nil
}

// fitScalings fits the configured scaler on the mean-filled wide columns.
func (pl *Planner) fitScalings(wide []numericColumn) ([]Scaling, error) {
	rows := len(wide[0].values)
	X := mat.NewDense(rows, len(wide), nil)
	for j, nc := range wide {
		X.SetCol(j, nc.values)
	}

	out := make([]Scaling, len(wide))
	switch pl.opt.ScalingMethod {
	case ScalingStandard:
		s := NewStandardScaler()
		if err := s.Fit(X); err != nil {
			return nil, err
		}
		mm := NewMinMaxScaler()
		if err := mm.Fit(X); err != nil {
			return nil, err
		}
		for j, nc := range wide {
			out[j] = Scaling{Column: nc.name, Method: ScalingStandard,
				Min: mm.DataMin[j], Max: mm.DataMax[j], Mean: s.Mean[j], Std: s.Scale[j]}
		}
	case ScalingMinMax:
		mm := NewMinMaxScaler()
		if err := mm.Fit(X); err != nil {
			return nil, err
		}
		for j, nc := range wide {
			mean := stats.DescribeNumeric(mat.Col(nil, j, X)).Mean
			out[j] = Scaling{Column: nc.name, Method: ScalingMinMax,
				Min: mm.DataMin[j], Max: mm.DataMax[j], Mean: mean}
		}
	default:
		return nil, errors.NewValidationError("scaling_method", "must be minmax or standard", string(pl.opt.ScalingMethod))
	}
	return out, nil
}

// labelEncode assigns codes 0..k-1 to the non-missing values of raw in
// order of first appearance.
func labelEncode(column string, raw []string) Encoding {
	enc := Encoding{Column: column}
	seen := make(map[string]struct{})
	for _, v := range raw {
		if dataset.IsMissing(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		enc.Codes = append(enc.Codes, Code{Value: v, Code: len(enc.Codes)})
	}
	return enc
}
