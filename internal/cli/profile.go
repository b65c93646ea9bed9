package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/report"
)

type columnView struct {
	Name            string   `json:"name" yaml:"name"`
	Type            string   `json:"type" yaml:"type"`
	Unique          int      `json:"unique" yaml:"unique"`
	Missing         int      `json:"missing" yaml:"missing"`
	Samples         []string `json:"samples" yaml:"samples"`
	PredictorUsable bool     `json:"predictorUsable" yaml:"predictorUsable"`
	TargetUsable    bool     `json:"targetUsable" yaml:"targetUsable"`
}

type profileView struct {
	Dataset string       `json:"dataset" yaml:"dataset"`
	Rows    int          `json:"rows" yaml:"rows"`
	Columns []columnView `json:"columns" yaml:"columns"`
}

func newProfileCommand(a *app) *cobra.Command {
	var (
		format    string
		out       string
		delimiter string
	)
	cmd := &cobra.Command{
		Use:   "profile <file>",
		Short: "Infer column types and show which columns can be predictors or a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			ds, err := readDataset(args[0], delimiter)
			if err != nil {
				return err
			}

			c := a.cfg.Profile
			classifier := dataset.Classifier{
				SampleSize:       c.SampleSize,
				NumericThreshold: c.NumericThreshold,
				MaxTargetClasses: c.MaxTargetClasses,
			}
			view := profileView{Dataset: ds.Name(), Rows: ds.NumRows()}
			for _, p := range classifier.Profile(ds) {
				view.Columns = append(view.Columns, columnView{
					Name:            p.Name,
					Type:            string(p.Type),
					Unique:          p.UniqueCount,
					Missing:         p.MissingCount,
					Samples:         p.SampleValues,
					PredictorUsable: p.SuitablePredictor(),
					TargetUsable:    p.SuitableTarget() && p.UniqueCount >= 2,
				})
			}
			a.logger.Info("dataset profiled", log.SourceKey, ds.Name(), log.SamplesKey, ds.NumRows(), log.FeaturesKey, ds.NumCols())
			return writeTo(cmd, out, func(w io.Writer) error { return encode(w, view, f) })
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: json or yaml")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "field delimiter: ',', ';' or 'tab' (default sniffed)")
	return cmd
}

func readDataset(path, delimiter string) (*dataset.Dataset, error) {
	opt := dataset.ReadOptions{}
	switch delimiter {
	case "":
	case "tab", `\t`, "\t":
		opt.Delimiter = '\t'
	case ",", ";", "|":
		opt.Delimiter = rune(delimiter[0])
	default:
		return nil, errors.NewValidationError("delimiter", "must be ',', ';', '|' or tab", delimiter)
	}
	return dataset.ReadFile(path, opt)
}
