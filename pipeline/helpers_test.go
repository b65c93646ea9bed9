package pipeline

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
)

var customerColumns = []string{"age", "age_months", "income", "city", "constant", "bought"}

// customers builds n deterministic rows; bought is "yes" for ages over 45.
func customers(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	cities := []string{"tokyo", "osaka", "nagoya"}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		age := 18 + (i*7)%60
		bought := "no"
		if age > 45 {
			bought = "yes"
		}
		rows[i] = []string{
			strconv.Itoa(age),
			strconv.Itoa(age*12 + i%5),
			strconv.Itoa(20000 + (i*3517)%80000),
			cities[i%3],
			"1",
			bought,
		}
	}
	ds, err := dataset.New("customers", customerColumns, rows)
	require.NoError(t, err)
	return ds
}

func customerSelection() dataset.Selection {
	return dataset.Selection{Predictors: []string{"age", "age_months", "income", "city"}, Target: "bought"}
}

func testHyperparameters() backend.Hyperparameters {
	hp := backend.DefaultHyperparameters()
	hp.LearningRate = 0.1
	hp.MaxIterations = 200
	return hp
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opt := DefaultOptions()
	opt.Logger = logger
	return New(opt), logger
}

// runTo runs the action of every stage before s, advancing after each, so
// the orchestrator ends at stage s with the action of s not yet run.
func runTo(t *testing.T, o *Orchestrator, ds *dataset.Dataset, s Stage) {
	t.Helper()
	ctx := context.Background()
	steps := []func(){
		func() { require.NoError(t, o.LoadDataset(ds)) },
		func() { require.NoError(t, o.SelectColumns(customerSelection())) },
		func() {
			_, err := o.Split(0.8, true, 42)
			require.NoError(t, err)
		},
		func() {
			_, err := o.ComputeCorrelation()
			require.NoError(t, err)
		},
		func() {
			_, err := o.Explore()
			require.NoError(t, err)
		},
		func() {
			_, err := o.PlanPreprocessing()
			require.NoError(t, err)
		},
		func() {
			_, err := o.Train(ctx, testHyperparameters())
			require.NoError(t, err)
		},
		func() {
			_, err := o.Evaluate(ctx)
			require.NoError(t, err)
		},
	}
	for i := 0; i < int(s)-1 && i < len(steps); i++ {
		steps[i]()
		require.NoError(t, o.Advance())
	}
	require.Equal(t, s, o.Stage())
}

// blockingBackend holds Train until released or cancelled.
type blockingBackend struct {
	*backend.Logistic
	started chan struct{}
	release chan struct{}
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{
		Logistic: backend.NewLogistic(),
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (b *blockingBackend) Train(ctx context.Context, X mat.Matrix, y []int, nClasses int, hp backend.Hyperparameters) (*backend.TrainResult, error) {
	close(b.started)
	select {
	case <-b.release:
		return b.Logistic.Train(ctx, X, y, nClasses, hp)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
