package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGraphDependents(t *testing.T) {
	g := DefaultGraph()

	tests := []struct {
		changed Entity
		want    []Entity
	}{
		{EntityDataset, []Entity{EntityColumns, EntitySplit, EntityExploration, EntityCorrelation, EntityModel, EntityEvaluation, EntityPreprocessing}},
		{EntityColumns, []Entity{EntitySplit, EntityExploration, EntityCorrelation, EntityModel, EntityEvaluation, EntityPreprocessing}},
		{EntitySplit, []Entity{EntityCorrelation, EntityModel, EntityEvaluation}},
		{EntityExploration, []Entity{EntityPreprocessing, EntityModel, EntityEvaluation}},
		{EntityModel, []Entity{EntityEvaluation}},
		{EntityCorrelation, nil},
		{EntityEvaluation, nil},
	}
	for _, tt := range tests {
		t.Run(tt.changed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, g.Dependents(tt.changed))
		})
	}
}

func TestGraphDependsOnIgnoresDuplicates(t *testing.T) {
	g := NewGraph().
		DependsOn(EntitySplit, EntityDataset).
		DependsOn(EntitySplit, EntityDataset).
		DependsOn(EntityModel, EntitySplit).
		DependsOn(EntityModel, EntityDataset)

	assert.Equal(t, []Entity{EntitySplit, EntityModel}, g.Dependents(EntityDataset))
}

func TestEntityString(t *testing.T) {
	assert.Equal(t, "preprocessing", EntityPreprocessing.String())
	assert.Equal(t, "unknown", Entity(42).String())
}
