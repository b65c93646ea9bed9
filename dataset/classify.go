package dataset

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
)

// Classifier defaults.
const (
	DefaultSampleSize       = 100
	DefaultNumericThreshold = 0.7
	DefaultMaxTargetClasses = 5
	sampleValuesShown       = 5
)

// ColumnProfile describes one column for selection and planning.
type ColumnProfile struct {
	Name         string
	Type         ColumnType
	UniqueCount  int
	MissingCount int
	SampleValues []string

	// HasVariation is true when the column has more than one distinct value.
	HasVariation bool
	// BoundedCardinality is true when the column has few enough distinct
	// values to act as a classification target.
	BoundedCardinality bool
}

// SuitablePredictor reports whether the column may be used as a predictor.
func (p ColumnProfile) SuitablePredictor() bool { return p.HasVariation }

// SuitableTarget reports whether the column may be used as the target.
func (p ColumnProfile) SuitableTarget() bool { return p.BoundedCardinality }

// Classifier infers column types from a sample of rows.
type Classifier struct {
	// SampleSize is the number of leading rows inspected for type
	// inference; 0 means all rows.
	SampleSize int
	// NumericThreshold is the minimum share of parseable non-missing
	// sampled values for a column to be numeric.
	NumericThreshold float64
	// MaxTargetClasses bounds the distinct values of a target column.
	MaxTargetClasses int
}

// DefaultClassifier returns a Classifier with the standard thresholds.
func DefaultClassifier() Classifier {
	return Classifier{
		SampleSize:       DefaultSampleSize,
		NumericThreshold: DefaultNumericThreshold,
		MaxTargetClasses: DefaultMaxTargetClasses,
	}
}

// Classify profiles a single column.
func (c Classifier) Classify(name string, values []string) ColumnProfile {
	p := ColumnProfile{Name: name, Type: Categorical}

	seen := make(map[string]struct{})
	for _, v := range values {
		if IsMissing(v) {
			p.MissingCount++
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			if len(p.SampleValues) < sampleValuesShown {
				p.SampleValues = append(p.SampleValues, v)
			}
		}
	}
	p.UniqueCount = len(seen)
	p.HasVariation = p.UniqueCount > 1
	p.BoundedCardinality = p.UniqueCount <= c.MaxTargetClasses

	if IsNumericSample(values, c.SampleSize, c.NumericThreshold) {
		p.Type = Numeric
	}
	return p
}

// Profile classifies every column of ds in column order.
func (c Classifier) Profile(ds *Dataset) []ColumnProfile {
	cols := ds.Columns()
	out := make([]ColumnProfile, len(cols))
	for i, name := range cols {
		values, _ := ds.Column(name)
		out[i] = c.Classify(name, values)
	}
	return out
}

// IsNumericSample reports whether at least threshold of the non-missing
// values among the first sampleSize entries parse as numbers. A sample with
// no non-missing values is not numeric.
func IsNumericSample(values []string, sampleSize int, threshold float64) bool {
	if sampleSize > 0 && len(values) > sampleSize {
		values = values[:sampleSize]
	}
	present, numeric := 0, 0
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		present++
		if _, ok := ParseNumber(v); ok {
			numeric++
		}
	}
	if present == 0 {
		return false
	}
	return float64(numeric) >= threshold*float64(present)
}
