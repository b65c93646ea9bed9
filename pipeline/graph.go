package pipeline

// Entity is a piece of pipeline state that other state may derive from.
type Entity int

const (
	EntityDataset Entity = iota
	EntityColumns
	EntitySplit
	EntityCorrelation
	EntityExploration
	EntityPreprocessing
	EntityModel
	EntityEvaluation
)

var entityNames = [...]string{
	EntityDataset:       "dataset",
	EntityColumns:       "columns",
	EntitySplit:         "split",
	EntityCorrelation:   "correlation",
	EntityExploration:   "exploration",
	EntityPreprocessing: "preprocessing",
	EntityModel:         "model",
	EntityEvaluation:    "evaluation",
}

func (e Entity) String() string {
	if e < 0 || int(e) >= len(entityNames) {
		return "unknown"
	}
	return entityNames[e]
}

// Graph records which entities derive from which. Dependents are kept in
// insertion order so walks are deterministic.
type Graph struct {
	dependents map[Entity][]Entity
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{dependents: make(map[Entity][]Entity)}
}

// DependsOn records that child is derived from parent.
func (g *Graph) DependsOn(child, parent Entity) *Graph {
	for _, d := range g.dependents[parent] {
		if d == child {
			return g
		}
	}
	g.dependents[parent] = append(g.dependents[parent], child)
	return g
}

// Dependents returns every entity transitively derived from e, breadth
// first, each once. e itself is not included.
func (g *Graph) Dependents(e Entity) []Entity {
	var out []Entity
	seen := map[Entity]bool{e: true}
	queue := []Entity{e}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.dependents[cur] {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			queue = append(queue, d)
		}
	}
	return out
}

// DefaultGraph is the dependency structure of the analysis pipeline.
func DefaultGraph() *Graph {
	return NewGraph().
		DependsOn(EntityColumns, EntityDataset).
		DependsOn(EntitySplit, EntityColumns).
		DependsOn(EntityCorrelation, EntitySplit).
		DependsOn(EntityExploration, EntityColumns).
		DependsOn(EntityPreprocessing, EntityExploration).
		DependsOn(EntityModel, EntityPreprocessing).
		DependsOn(EntityModel, EntitySplit).
		DependsOn(EntityEvaluation, EntityModel).
		DependsOn(EntityEvaluation, EntitySplit)
}
