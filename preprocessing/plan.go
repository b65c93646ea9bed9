// Package preprocessing plans and applies the feature preparation of a
// model: missing-value fills, label encoding of categorical predictors and
// scaling of wide numeric predictors.
package preprocessing

import (
	"github.com/YuminosukeSato/scigo-studio/dataset"
)

// FillStrategy is how missing values of a column are replaced.
type FillStrategy string

const (
	FillMean FillStrategy = "mean"
	FillMode FillStrategy = "mode"
)

// ScalingMethod selects the scaler applied to wide numeric columns.
type ScalingMethod string

const (
	ScalingNone     ScalingMethod = "none"
	ScalingMinMax   ScalingMethod = "minmax"
	ScalingStandard ScalingMethod = "standard"
)

// EncodingLabel is the only categorical encoding the planner emits.
const EncodingLabel = "label"

// MissingPolicy records the fill applied to one predictor.
type MissingPolicy struct {
	Column   string       `json:"column"`
	Strategy FillStrategy `json:"strategy"`
	Count    int          `json:"count"`
	// Value is the numeric fill for FillMean.
	Value float64 `json:"value,omitempty"`
	// Category is the categorical fill for FillMode.
	Category string `json:"category,omitempty"`
}

// Code maps one category to its integer code.
type Code struct {
	Value string `json:"value"`
	Code  int    `json:"code"`
}

// Encoding is the label encoding of one categorical predictor. Codes are
// assigned in order of first appearance. Values not in Codes, including
// missing ones, map to Fallback.
type Encoding struct {
	Column   string `json:"column"`
	Codes    []Code `json:"codes"`
	Fallback int    `json:"fallback"`
}

// Lookup returns the code of value, or Fallback for unseen values.
func (e Encoding) Lookup(value string) int {
	for _, c := range e.Codes {
		if c.Value == value {
			return c.Code
		}
	}
	return e.Fallback
}

// Scaling holds the fitted parameters of one scaled column.
type Scaling struct {
	Column string        `json:"column"`
	Method ScalingMethod `json:"method"`
	Min    float64       `json:"min"`
	Max    float64       `json:"max"`
	Mean   float64       `json:"mean"`
	Std    float64       `json:"std"`
}

// Plan is the ordered preparation applied to predictor columns before
// training and prediction.
type Plan struct {
	// Features are the predictor columns that enter the model, in order.
	Features []string `json:"features"`
	// Types holds the inferred type of every feature.
	Types map[string]dataset.ColumnType `json:"types"`
	// Means holds the training mean of every numeric feature, used to fill
	// values missing at prediction time.
	Means map[string]float64 `json:"means"`

	Missing       []MissingPolicy `json:"missing"`
	Encodings     []Encoding      `json:"encodings"`
	ScalingMethod ScalingMethod   `json:"scalingMethod"`
	Scalings      []Scaling       `json:"scalings"`

	// Excluded are predictors dropped from the feature matrix.
	Excluded []string `json:"excluded,omitempty"`
	// Steps is the human-readable log of planning decisions.
	Steps []string `json:"steps"`
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := &Plan{
		Features:      append([]string(nil), p.Features...),
		Types:         make(map[string]dataset.ColumnType, len(p.Types)),
		Means:         make(map[string]float64, len(p.Means)),
		Missing:       append([]MissingPolicy(nil), p.Missing...),
		Encodings:     make([]Encoding, len(p.Encodings)),
		ScalingMethod: p.ScalingMethod,
		Scalings:      append([]Scaling(nil), p.Scalings...),
		Excluded:      append([]string(nil), p.Excluded...),
		Steps:         append([]string(nil), p.Steps...),
	}
	for k, v := range p.Types {
		c.Types[k] = v
	}
	for k, v := range p.Means {
		c.Means[k] = v
	}
	for i, e := range p.Encodings {
		c.Encodings[i] = Encoding{Column: e.Column, Codes: append([]Code(nil), e.Codes...), Fallback: e.Fallback}
	}
	return c
}

// EncodingFor returns the encoding of column, if any.
func (p *Plan) EncodingFor(column string) (Encoding, bool) {
	for _, e := range p.Encodings {
		if e.Column == column {
			return e, true
		}
	}
	return Encoding{}, false
}

// MissingFor returns the missing-value policy of column, if any.
func (p *Plan) MissingFor(column string) (MissingPolicy, bool) {
	for _, m := range p.Missing {
		if m.Column == column {
			return m, true
		}
	}
	return MissingPolicy{}, false
}

// ScalingFor returns the scaling of column, if any.
func (p *Plan) ScalingFor(column string) (Scaling, bool) {
	for _, s := range p.Scalings {
		if s.Column == column {
			return s, true
		}
	}
	return Scaling{}, false
}

// Mappings returns every encoding as column -> value -> code.
func (p *Plan) Mappings() map[string]map[string]int {
	out := make(map[string]map[string]int, len(p.Encodings))
	for _, e := range p.Encodings {
		m := make(map[string]int, len(e.Codes))
		for _, c := range e.Codes {
			m[c.Value] = c.Code
		}
		out[e.Column] = m
	}
	return out
}
