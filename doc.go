// Package studio is a guided logistic-regression analysis pipeline for
// tabular data, built for services and command-line tools that need a
// reproducible path from a CSV file to an exported, reusable model.
//
// An analysis moves through nine stages: Upload, Columns, Split, Correlate,
// Explore, Preprocess, Train, Evaluate and Predict. The pipeline.Orchestrator
// owns every derived result, refuses to enter a stage whose inputs are
// missing, and clears stale results whenever an upstream input changes.
//
// # Features
//
// - Column type inference and predictor/target suitability checks
// - Seeded, optionally stratified train/test splits
// - Pearson correlation, per-column summaries and class imbalance reports
// - Automatic missing-value fills, label encoding and range-based scaling
// - Cancellable training with coefficient extraction and a fallback path
// - JSON model files that can be re-imported and evaluated elsewhere
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/scigo-studio/dataset"
//	    "github.com/YuminosukeSato/scigo-studio/pipeline"
//	)
//
//	func main() {
//	    ds, err := dataset.ReadFile("customers.csv", dataset.ReadOptions{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    o := pipeline.New(pipeline.DefaultOptions())
//	    must(o.LoadDataset(ds))
//	    must(o.Advance())
//	    must(o.SelectColumns(dataset.Selection{
//	        Predictors: []string{"age", "income", "city"},
//	        Target:     "bought",
//	    }))
//	    must(o.Advance())
//	    _, err = o.Split(0.8, true, 42)
//	    must(err)
//	    // ... Correlate, Explore, Preprocess ...
//	    _, err = o.Train(context.Background(), pipeline.DefaultOptions().Hyperparameters)
//	    must(err)
//	    must(o.ExportModel(os.Stdout))
//	}
//
// # Packages
//
//   - dataset: CSV ingestion, column profiling and column selection
//   - sampling: reproducible train/test splits
//   - stats: correlation matrices, numeric and categorical summaries
//   - preprocessing: preprocessing planner, plan application and scalers
//   - sklearn/linear_model: gradient-descent LogisticRegression
//   - backend: the capability interface the orchestrator trains through
//   - metrics: accuracy, precision, recall, F1, confusion matrices and AUC
//   - pipeline: stage machine, dependency graph, model files and snapshots
//   - report: PNG charts and JSON/YAML summaries of a snapshot
//   - core/model: estimator interfaces, fitted-state tracking, weight export
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// The scigo-studio command (cmd/scigo-studio) runs the whole pipeline from
// the shell: profile, run, predict and inspect.
//
// # License
//
// scigo-studio is released under the MIT License.
package studio
