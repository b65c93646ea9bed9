package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pipeline"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/report"
)

type runFlags struct {
	target     string
	predictors []string
	delimiter  string

	ratio    float64
	stratify bool
	seed     int64

	learningRate float64
	maxIter      int
	penalty      string
	strength     float64

	modelOut   string
	summaryOut string
	chartsDir  string
	format     string
}

func newRunCommand(a *app) *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run every analysis stage on a CSV file and export the trained model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], rf)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&rf.target, "target", "t", "", "target column (required)")
	f.StringSliceVarP(&rf.predictors, "predictors", "p", nil, "predictor columns (default every usable column)")
	f.StringVar(&rf.delimiter, "delimiter", "", "field delimiter: ',', ';' or 'tab' (default sniffed)")
	f.Float64Var(&rf.ratio, "ratio", 0, "training share of rows (overrides config)")
	f.BoolVar(&rf.stratify, "stratify", true, "stratify the split by target (overrides config)")
	f.Int64Var(&rf.seed, "seed", 0, "split seed (overrides config)")
	f.Float64Var(&rf.learningRate, "learning-rate", 0, "learning rate (overrides config)")
	f.IntVar(&rf.maxIter, "max-iter", 0, "maximum training iterations (overrides config)")
	f.StringVar(&rf.penalty, "penalty", "", "regularization: none, l1 or l2 (overrides config)")
	f.Float64Var(&rf.strength, "strength", 0, "regularization strength (overrides config)")
	f.StringVar(&rf.modelOut, "model-out", "", "write the model file to this path")
	f.StringVarP(&rf.summaryOut, "output", "o", "", "summary output file (default stdout)")
	f.StringVar(&rf.chartsDir, "charts", "", "write coefficient and correlation PNG charts to this directory")
	f.StringVar(&rf.format, "format", "yaml", "summary format: json or yaml")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string, rf runFlags) error {
	format, err := report.ParseFormat(rf.format)
	if err != nil {
		return err
	}
	ds, err := readDataset(path, rf.delimiter)
	if err != nil {
		return err
	}

	opt, err := a.cfg.PipelineOptions()
	if err != nil {
		return err
	}
	opt.Logger = log.GetLoggerWithName("pipeline").With(log.SessionIDKey, a.session)
	o := pipeline.New(opt)

	flags := cmd.Flags()
	split := a.cfg.Split
	if flags.Changed("ratio") {
		split.Ratio = rf.ratio
	}
	if flags.Changed("stratify") {
		split.Stratify = rf.stratify
	}
	if flags.Changed("seed") {
		split.Seed = rf.seed
	}
	hp := opt.Hyperparameters
	if flags.Changed("learning-rate") {
		hp.LearningRate = rf.learningRate
	}
	if flags.Changed("max-iter") {
		hp.MaxIterations = rf.maxIter
	}
	if flags.Changed("penalty") {
		hp.Penalty = rf.penalty
	}
	if flags.Changed("strength") {
		hp.Strength = rf.strength
	}

	ctx := cmd.Context()
	steps := []struct {
		name string
		do   func() error
	}{
		{"load", func() error { return o.LoadDataset(ds) }},
		{"select", func() error {
			sel := dataset.Selection{Predictors: rf.predictors, Target: rf.target}
			if len(sel.Predictors) == 0 {
				sel.Predictors = usablePredictors(o.Profiles(), rf.target)
			}
			return o.SelectColumns(sel)
		}},
		{"split", func() error { _, err := o.Split(split.Ratio, split.Stratify, split.Seed); return err }},
		{"correlate", func() error { _, err := o.ComputeCorrelation(); return err }},
		{"explore", func() error { _, err := o.Explore(); return err }},
		{"preprocess", func() error { _, err := o.PlanPreprocessing(); return err }},
		{"train", func() error { _, err := o.Train(ctx, hp); return err }},
		{"evaluate", func() error { _, err := o.Evaluate(ctx); return err }},
	}
	for _, s := range steps {
		if err := s.do(); err != nil {
			return errors.Wrapf(err, "%s stage", s.name)
		}
		if err := o.Advance(); err != nil {
			return errors.Wrapf(err, "leave %s stage", s.name)
		}
	}

	if rf.modelOut != "" {
		if err := writeTo(cmd, rf.modelOut, o.ExportModel); err != nil {
			return err
		}
		a.logger.Info("model written", log.OperationKey, log.OperationExport, "path", rf.modelOut)
	}
	if rf.chartsDir != "" {
		if err := a.writeCharts(o.Snapshot(), rf.chartsDir); err != nil {
			return err
		}
	}
	snap := o.Snapshot()
	return writeTo(cmd, rf.summaryOut, func(w io.Writer) error { return report.WriteSummary(w, snap, format) })
}

// usablePredictors is every column except target that varies.
func usablePredictors(profiles []dataset.ColumnProfile, target string) []string {
	var out []string
	for _, p := range profiles {
		if p.Name != target && p.SuitablePredictor() {
			out = append(out, p.Name)
		}
	}
	return out
}

// writeCharts renders the charts the snapshot has data for. Missing data
// is logged and skipped.
func (a *app) writeCharts(s *pipeline.Snapshot, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	charts := []struct {
		file string
		draw func(io.Writer) error
	}{
		{"coefficients.png", func(w io.Writer) error {
			return report.WriteCoefficientChart(w, s.Model, report.DefaultChartOptions())
		}},
		{"correlation.png", func(w io.Writer) error {
			return report.WriteCorrelationChart(w, s.Correlation, report.DefaultChartOptions())
		}},
	}
	for _, c := range charts {
		path := filepath.Join(dir, c.file)
		err := writeChart(path, c.draw)
		var ve *errors.ValidationError
		if errors.As(err, &ve) {
			a.logger.Warn("chart skipped", err, "chart", c.file)
			continue
		}
		if err != nil {
			return err
		}
		a.logger.Info("chart written", "path", path)
	}
	return nil
}

// writeChart renders into memory first so a rejected chart leaves no file.
func writeChart(path string, draw func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "write %s", path)
}
