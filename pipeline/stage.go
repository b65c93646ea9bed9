package pipeline

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// Stage is one step of the analysis, numbered 1 to 9.
type Stage int

const (
	StageUpload Stage = iota + 1
	StageColumns
	StageSplit
	StageCorrelate
	StageExplore
	StagePreprocess
	StageTrain
	StageEvaluate
	StagePredict
)

// FirstStage and LastStage bound the valid stages.
const (
	FirstStage = StageUpload
	LastStage  = StagePredict
)

var stageNames = [...]string{
	StageUpload:     "Upload",
	StageColumns:    "Columns",
	StageSplit:      "Split",
	StageCorrelate:  "Correlate",
	StageExplore:    "Explore",
	StagePreprocess: "Preprocess",
	StageTrain:      "Train",
	StageEvaluate:   "Evaluate",
	StagePredict:    "Predict",
}

// Valid reports whether s is one of the nine stages.
func (s Stage) Valid() bool { return s >= FirstStage && s <= LastStage }

func (s Stage) String() string {
	if !s.Valid() {
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// ParseStage accepts a stage name (case-insensitive) or its number.
func ParseStage(v string) (Stage, error) {
	if n, err := strconv.Atoi(v); err == nil {
		s := Stage(n)
		if !s.Valid() {
			return 0, errors.NewValidationError("stage", "must be between 1 and 9", n)
		}
		return s, nil
	}
	for s := FirstStage; s <= LastStage; s++ {
		if strings.EqualFold(v, stageNames[s]) {
			return s, nil
		}
	}
	return 0, errors.NewValidationError("stage", "unknown stage", v)
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.NewValidationError("stage", "must be between 1 and 9", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything ParseStage does.
func (s *Stage) UnmarshalText(text []byte) error {
	v, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
