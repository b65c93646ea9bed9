package dataset

import (
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// Selection names the predictor columns and the target column of an
// analysis. Predictors keep their order and contain no duplicates.
type Selection struct {
	Predictors []string `json:"predictors" yaml:"predictors"`
	Target     string   `json:"target" yaml:"target"`
}

// Complete reports whether at least one predictor and a target are set.
func (s Selection) Complete() bool {
	return len(s.Predictors) > 0 && s.Target != ""
}

// Clone returns a deep copy of s.
func (s Selection) Clone() Selection {
	return Selection{Predictors: append([]string(nil), s.Predictors...), Target: s.Target}
}

// Columns returns the predictors followed by the target.
func (s Selection) Columns() []string {
	out := append([]string(nil), s.Predictors...)
	if s.Target != "" {
		out = append(out, s.Target)
	}
	return out
}

// Validate checks s against the profiles of the dataset. A partial
// selection is accepted; every column it names must exist, appear once and
// be suitable for its role.
func (s Selection) Validate(profiles []ColumnProfile) error {
	byName := make(map[string]ColumnProfile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}

	seen := make(map[string]struct{}, len(s.Predictors))
	for _, name := range s.Predictors {
		p, ok := byName[name]
		if !ok {
			return errors.NewMissingColumnsError([]string{name})
		}
		if _, dup := seen[name]; dup {
			return errors.NewValidationError("predictors", "duplicate predictor", name)
		}
		seen[name] = struct{}{}
		if name == s.Target {
			return errors.NewValidationError("predictors", "target cannot also be a predictor", name)
		}
		if !p.SuitablePredictor() {
			return errors.NewValidationError("predictors", "column has no variation", name)
		}
	}

	if s.Target != "" {
		p, ok := byName[s.Target]
		if !ok {
			return errors.NewMissingColumnsError([]string{s.Target})
		}
		if !p.SuitableTarget() {
			return errors.NewValidationError("target", "too many distinct values for a classification target", p.UniqueCount)
		}
		if p.UniqueCount < 2 {
			return errors.NewValidationError("target", "target needs at least two classes", p.UniqueCount)
		}
	}
	return nil
}
