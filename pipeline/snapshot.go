package pipeline

import (
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
	"github.com/YuminosukeSato/scigo-studio/sampling"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// DatasetInfo describes the loaded dataset without its rows.
type DatasetInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Rows    int      `json:"rows" yaml:"rows"`
	Columns []string `json:"columns" yaml:"columns"`
}

// Snapshot is a read-only copy of the pipeline state for report writers.
// Absent entities are nil.
type Snapshot struct {
	Stage       Stage                    `json:"stage" yaml:"stage"`
	Dataset     *DatasetInfo             `json:"dataset" yaml:"dataset"`
	Profiles    []dataset.ColumnProfile  `json:"profiles" yaml:"profiles"`
	Selection   dataset.Selection        `json:"selection" yaml:"selection"`
	Split       *sampling.Result         `json:"split" yaml:"split"`
	Correlation *stats.CorrelationMatrix `json:"correlation" yaml:"correlation"`
	Exploration *Exploration             `json:"exploration" yaml:"exploration"`
	Plan        *preprocessing.Plan      `json:"plan" yaml:"plan"`
	Model       *TrainedModel            `json:"model" yaml:"model"`
	Evaluation  *Evaluation              `json:"evaluation" yaml:"evaluation"`
}

// Snapshot copies the current state.
func (o *Orchestrator) Snapshot() *Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := &Snapshot{
		Stage:       o.stage,
		Profiles:    append([]dataset.ColumnProfile(nil), o.profiles...),
		Selection:   o.selection.Clone(),
		Split:       o.split.Clone(),
		Correlation: o.correlation.Clone(),
		Exploration: o.exploration.Clone(),
		Plan:        o.plan.Clone(),
		Model:       o.model.Clone(),
		Evaluation:  o.evaluation.Clone(),
	}
	if o.data != nil {
		s.Dataset = &DatasetInfo{Name: o.data.Name(), Rows: o.data.NumRows(), Columns: o.data.Columns()}
	}
	return s
}
